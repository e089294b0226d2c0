package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

func TestBuildWhere(t *testing.T) {
	cases := map[string]struct {
		cond     entity.Condition
		wantSQL  string
		wantArgs []any
	}{
		"leaf": {
			cond:     entity.Equals("customer.email", "a@b.c"),
			wantSQL:  "data #>> string_to_array(?, '.') = ?",
			wantArgs: []any{"customer.email", "a@b.c"},
		},
		"state": {
			cond:     entity.InState("placed"),
			wantSQL:  "state = ?",
			wantArgs: []any{"placed"},
		},
		"null value": {
			cond:     entity.Equals("cancelledReason", nil),
			wantSQL:  "data #>> string_to_array(?, '.') IS NULL",
			wantArgs: []any{"cancelledReason"},
		},
		"and group": {
			cond:     entity.And(entity.Equals("petId", "p-1"), entity.InState("placed")),
			wantSQL:  "(data #>> string_to_array(?, '.') = ?) AND (state = ?)",
			wantArgs: []any{"petId", "p-1", "placed"},
		},
		"or with number": {
			cond:     entity.Or(entity.Equals("quantity", 3), entity.Equals("paid", true)),
			wantSQL:  "(data #>> string_to_array(?, '.') = ?) OR (data #>> string_to_array(?, '.') = ?)",
			wantArgs: []any{"quantity", "3", "paid", "true"},
		},
		"large integer": {
			cond:     entity.Equals("stockOnHand", 1000000),
			wantSQL:  "data #>> string_to_array(?, '.') = ?",
			wantArgs: []any{"stockOnHand", "1000000"},
		},
		"large float": {
			cond:     entity.Equals("categoryId", float64(1234567)),
			wantSQL:  "data #>> string_to_array(?, '.') = ?",
			wantArgs: []any{"categoryId", "1234567"},
		},
		"empty string": {
			cond:     entity.Equals("note", ""),
			wantSQL:  "data #>> string_to_array(?, '.') = ?",
			wantArgs: []any{"note", ""},
		},
		"empty and": {cond: entity.And(), wantSQL: "TRUE"},
		"empty or":  {cond: entity.Or(), wantSQL: "FALSE"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			sql, args := buildWhere(tc.cond)
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestStore_NotConfigured(t *testing.T) {
	var store *Store
	_, err := store.GetByID(t.Context(), uuid.Nil, entity.ModelSpec{Name: "pet", Version: 1})
	assert.Error(t, err)
}
