package media

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/db/testdb"
)

func TestCreateGetDelete(t *testing.T) {
	db := testdb.New(t)

	m := &models.Media{
		Key:          "2026/05/abc.jpg",
		OriginalName: "holiday.jpg",
		ContentType:  "image/jpeg",
		Width:        2000,
		Height:       1000,
		Variants: []models.MediaVariant{
			{Width: 480, Height: 240, Format: "webp", Key: "2026/05/abc-480.webp"},
		},
	}
	require.NoError(t, Create(db, m))
	require.NotZero(t, m.ID)

	got, err := Get(db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "holiday.jpg", got.OriginalName)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, 480, got.Variants[0].Width)

	require.NoError(t, Delete(db, m.ID))

	_, err = Get(db, m.ID)
	require.ErrorIs(t, err, ErrMediaNotFound)
	require.ErrorIs(t, Delete(db, m.ID), ErrMediaNotFound)
}

func TestList(t *testing.T) {
	db := testdb.New(t)

	for i := range 3 {
		require.NoError(t, Create(db, &models.Media{Key: fmt.Sprintf("k%d", i)}))
	}

	page, err := List(db, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "k2", page.Items[0].Key)

	page, err = List(db, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "k0", page.Items[0].Key)

	_, err = List(nil, 1, 2)
	require.ErrorIs(t, err, ErrDBNil)
}

func TestCount(t *testing.T) {
	db := testdb.New(t)

	n, err := Count(db)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, Create(db, &models.Media{Key: "a"}))
	require.NoError(t, Create(db, &models.Media{Key: "b"}))

	n, err = Count(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
