package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkpress/inkpress/internal/config"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name string
		db   config.DB
		want string
	}{
		{
			name: "mysql",
			db: config.DB{
				Engine: config.EngineMySQL, User: "blog", Password: "secret",
				Host: "localhost", Port: 3306, Name: "inkpress", Extras: "parseTime=true",
			},
			want: "blog:secret@tcp(localhost:3306)/inkpress?parseTime=true",
		},
		{
			name: "empty engine falls back to mysql",
			db:   config.DB{User: "u", Password: "p", Host: "db", Port: 3306, Name: "n"},
			want: "u:p@tcp(db:3306)/n?",
		},
		{
			name: "postgres escapes credentials",
			db: config.DB{
				Engine: config.EnginePostgres, User: "blog", Password: "p@ss/word",
				Host: "pg", Port: 5432, Name: "inkpress", Extras: "sslmode=disable",
			},
			want: "postgres://blog:p%40ss%2Fword@pg:5432/inkpress?sslmode=disable",
		},
		{
			name: "sqlite uses the file path",
			db:   config.DB{Engine: config.EngineSQLite, Path: "/var/lib/inkpress/blog.db"},
			want: "/var/lib/inkpress/blog.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Create(&config.Config{DB: tt.db}))
		})
	}
}
