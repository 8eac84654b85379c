package publish

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/table"
)

func sample() *table.Table {
	return table.MustNew(2,
		&table.Column{Name: "Transaction ID", Kind: table.KindText, Values: []table.Value{table.Text("t1"), table.Text("t2")}},
		&table.Column{Name: "amount", Kind: table.KindNumeric, Values: []table.Value{table.Number(9.5), table.Missing()}},
	)
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    pgx.Identifier
		wantErr bool
	}{
		{"sales", pgx.Identifier{"sales"}, false},
		{"staging.sales", pgx.Identifier{"staging", "sales"}, false},
		{"a.b.c", nil, true},
		{"staging.", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIdentifier(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnNames(t *testing.T) {
	names, err := ColumnNames(sample())
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction_id", "amount"}, names)

	clash := table.MustNew(0,
		&table.Column{Name: "Total"},
		&table.Column{Name: "total"},
	)
	_, err = ColumnNames(clash)
	assert.ErrorContains(t, err, `both map to "total"`)
}

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL(pgx.Identifier{"staging", "sales"}, sample())
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "staging"."sales" ("transaction_id" text, "amount" double precision)`,
		got)
}

func TestRows(t *testing.T) {
	assert.Equal(t, [][]any{
		{"t1", 9.5},
		{"t2", nil},
	}, Rows(sample()))
}
