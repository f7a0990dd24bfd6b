package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoice-totals/internal/models"
)

func TestClientService_CRUD(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	clients := NewClientService(f.db)

	acme := &models.Client{Name: "ACME", Email: "Compta@Acme.test", SIRET: "12345678900011"}
	require.NoError(t, clients.Create(ctx, 1, acme))
	assert.Equal(t, models.ClientTypeCompany, acme.Type)
	require.NoError(t, clients.Create(ctx, 1, &models.Client{Name: "Bob", Type: models.ClientTypeIndividual}))
	require.NoError(t, clients.Create(ctx, 2, &models.Client{Name: "Other workspace"}))

	list, total, err := clients.List(ctx, 1, "", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "ACME", list[0].Name)

	list, _, err = clients.List(ctx, 1, "compta@", 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, acme.ID, list[0].ID)

	_, err = clients.Get(ctx, 2, acme.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := clients.Update(ctx, 1, acme.ID, &models.Client{Name: "ACME SAS", City: "Lyon"})
	require.NoError(t, err)
	assert.Equal(t, "ACME SAS", updated.Name)
	assert.Equal(t, models.ClientTypeCompany, updated.Type)
	assert.Equal(t, "", updated.Email)
}

func TestClientService_DeleteInUse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	clients := NewClientService(f.db)

	acme := &models.Client{Name: "ACME"}
	require.NoError(t, clients.Create(ctx, 1, acme))
	inv := tenHundreds()
	inv.ClientID = &acme.ID
	require.NoError(t, f.invoices.Create(ctx, 1, inv))

	assert.ErrorIs(t, clients.Delete(ctx, 1, acme.ID), ErrClientInUse)

	require.NoError(t, f.invoices.Delete(ctx, 1, inv.ID))
	require.NoError(t, clients.Delete(ctx, 1, acme.ID))
	assert.ErrorIs(t, clients.Delete(ctx, 1, acme.ID), ErrNotFound)
}
