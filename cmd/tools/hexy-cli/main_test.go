package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/hexy-web/internal/hexy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowCount(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, showCount(&buf, 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"3", "9", "19"}, strings.Fields(lines[3]))

	assert.ErrorIs(t, showCount(&buf, 0), hexy.ErrInvalidSize)
}

func TestShowLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, showLayout(&buf, 2))

	out := buf.String()
	assert.Contains(t, out, "5 rows, 7 hexes")
	assert.Contains(t, out, "  0 | (1, 1)\n")
	assert.Contains(t, out, "  3 | (3, 2) (2, 3)\n")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHTML(&buf, 2))
	assert.Equal(t, 7, strings.Count(buf.String(), `class="hexagon"`))

	assert.Error(t, writeHTML(&buf, 0))
}

func TestParsePieces(t *testing.T) {
	placed, err := parsePieces(" 2,1,0,5 ; 1,2,3,0;")
	require.NoError(t, err)
	assert.Equal(t, []placedPiece{
		{at: hexy.HexID{X: 2, Y: 1}, piece: hexy.Piece{Team: 0, Value: 5}},
		{at: hexy.HexID{X: 1, Y: 2}, piece: hexy.Piece{Team: 3, Value: 0}},
	}, placed)

	placed, err = parsePieces("")
	require.NoError(t, err)
	assert.Empty(t, placed)

	for _, bad := range []string{"1,2,3", "a,1,0,0", "1,2,3,-4"} {
		_, err := parsePieces(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteHTML_WithPieces(t *testing.T) {
	placed, err := parsePieces("2,1,1,5")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeHTML(&buf, 2, placed...))
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `style="color: #0f0"`))
	assert.Contains(t, out, ">5<")

	// клетки (9, 9) нет на доске размера 2
	outside := placedPiece{at: hexy.HexID{X: 9, Y: 9}, piece: hexy.Piece{Team: 1}}
	assert.ErrorIs(t, writeHTML(&bytes.Buffer{}, 2, outside), hexy.ErrUnknownHex)
}

func TestShowStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"max_size":64}}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	require.NoError(t, showStats(&buf, srv.URL+"/"))
	assert.Contains(t, buf.String(), `"max_size": 64`)
}
