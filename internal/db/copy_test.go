package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "parcels", []string{"run_id", "parcel_id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"parcels"}, []string{"run_id", "parcel_id"}).WillReturnResult(3)

	rows := [][]any{{"r1", "P001"}, {"r1", "P002"}, {"r1", "C001"}}
	n, err := CopyFrom(context.Background(), mock, "parcels", []string{"run_id", "parcel_id"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"audit", "parcels"}, []string{"parcel_id"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "audit.parcels", []string{"parcel_id"}, [][]any{{"P001"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"parcels"}, []string{"parcel_id"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "parcels", []string{"parcel_id"}, [][]any{{"P001"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO parcels")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, pgx.Identifier{"parcels"}, Identifier("parcels"))
	assert.Equal(t, pgx.Identifier{"audit", "parcels"}, Identifier("audit.parcels"))
}
