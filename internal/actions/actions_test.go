package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dartdash/internal/row"
)

func TestDefaultCatalog(t *testing.T) {
	c := NewCatalog(nil, nil)
	assert.Equal(t, []Kind{Start, Stop, Restart, Enable, Disable}, c.For(row.Active, "p1"))
	assert.Equal(t, []Kind{Update, Enable, Disable}, c.For(row.Pending, "p1"))
	assert.Equal(t, []Kind{Unassign, Start, Stop, Restart, Enable, Disable}, c.For(row.Assigned, "p1"))
}

func TestCatalogPendingVariant(t *testing.T) {
	c := NewCatalog(map[row.Context][]Kind{
		row.Pending: {Update, Add, Remove, Enable, Disable},
	}, nil)
	assert.Equal(t, []Kind{Update, Add, Remove, Enable, Disable}, c.For(row.Pending, "p1"))
	assert.Equal(t, []Kind{Start, Stop, Restart, Enable, Disable}, c.For(row.Active, "p1"))
}

func TestIgnoredIdentityCollapsesEveryContext(t *testing.T) {
	c := NewCatalog(nil, []string{"dart-agent"})
	for _, ctx := range row.Contexts {
		assert.Empty(t, c.For(ctx, "dart-agent"), ctx.String())
		assert.False(t, c.Permits(ctx, "dart-agent", Enable))
	}
	assert.True(t, c.Permits(row.Active, "p1", Stop))
}

func TestForReturnsCopy(t *testing.T) {
	c := NewCatalog(nil, nil)
	kinds := c.For(row.Active, "p1")
	kinds[0] = Remove
	assert.Equal(t, Start, c.For(row.Active, "p1")[0])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Restart ")
	require.NoError(t, err)
	assert.Equal(t, Restart, k)

	_, err = ParseKind("explode")
	assert.Error(t, err)
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{Kind: Reread, Host: "h1"}.Validate())
	assert.Error(t, Request{Kind: Start, Host: "h1"}.Validate())
	assert.Error(t, Request{Kind: Start, Identity: "p1"}.Validate())
	assert.Error(t, Request{Kind: Assign, Host: "h1", Identity: "p1"}.Validate())
	assert.NoError(t, Request{Kind: Assign, Host: "h1", Identity: "p1", Environment: "prod"}.Validate())
	assert.Equal(t, "Unassign", Unassign.Label())
}
