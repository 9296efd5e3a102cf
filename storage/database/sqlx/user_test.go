package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DailyDoseOfWezs/Schedulink/core"
)

func Test_userOrderClause(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "no ordering"},
		{
			name:     "single column",
			ordering: []core.DBOrdering{{Field: "name", Ascending: true}},
			want:     " ORDER BY name ASC",
		},
		{
			name: "multiple columns",
			ordering: []core.DBOrdering{
				{Field: "created_at"},
				{Field: "email", Ascending: true},
			},
			want: " ORDER BY created_at DESC, email ASC",
		},
		{
			name:     "unknown column is dropped",
			ordering: []core.DBOrdering{{Field: "password_hash", Ascending: true}},
		},
		{
			name:     "sql in the field is dropped",
			ordering: []core.DBOrdering{{Field: `name; DROP TABLE "user"; --`, Ascending: true}},
		},
		{
			name: "only known columns survive",
			ordering: []core.DBOrdering{
				{Field: "name ASC, (SELECT 1)", Ascending: true},
				{Field: "email"},
			},
			want: " ORDER BY email DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userOrderClause(tt.ordering))
		})
	}
}
