package gorm_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	adapter "github.com/inkpress/inkpress/internal/logger/adapter/gorm"
)

func statement() (string, int64) {
	return "SELECT * FROM posts", 3
}

func TestTrace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		want    []string
		notWant bool
	}{
		{
			name:  "error is logged",
			level: gormlogger.Warn,
			begin: time.Now(),
			err:   errors.New("boom"),
			want:  []string{`"level":"error"`, `"error":"boom"`, "SELECT * FROM posts"},
		},
		{
			name:    "record not found is not logged",
			level:   gormlogger.Warn,
			begin:   time.Now(),
			err:     gorm.ErrRecordNotFound,
			notWant: true,
		},
		{
			name:  "slow query is a warning",
			level: gormlogger.Warn,
			begin: time.Now().Add(-time.Second),
			want:  []string{`"level":"warn"`, `"slow":true`, `"rows":3`},
		},
		{
			name:    "fast query is quiet at warn level",
			level:   gormlogger.Warn,
			begin:   time.Now(),
			notWant: true,
		},
		{
			name:  "every query at info level",
			level: gormlogger.Info,
			begin: time.Now(),
			want:  []string{`"level":"debug"`, `"component":"gorm"`},
		},
		{
			name:    "silent",
			level:   gormlogger.Silent,
			begin:   time.Now(),
			err:     errors.New("boom"),
			notWant: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			l := adapter.New(zerolog.New(&buf), tt.level)
			l.Trace(context.Background(), tt.begin, statement, tt.err)

			if tt.notWant {
				assert.Empty(t, buf.String())
				return
			}

			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestLogMode(t *testing.T) {
	var buf bytes.Buffer

	l := adapter.New(zerolog.New(&buf), gormlogger.Silent)
	l.Warn(context.Background(), "hidden %d", 1)
	assert.Empty(t, buf.String())

	l.LogMode(gormlogger.Warn).Warn(context.Background(), "shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")

	buf.Reset()
	l.Warn(context.Background(), "still hidden")
	assert.Empty(t, buf.String(), "LogMode must not change the original")
}
