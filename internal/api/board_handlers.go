package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/hexy-web/internal/cache"
	"github.com/annel0/hexy-web/internal/hexy"
	"github.com/annel0/hexy-web/internal/logging"
	"github.com/annel0/hexy-web/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrSizeOutOfRange возвращается для размера больше hexy.max_size
var ErrSizeOutOfRange = errors.New("board size out of range")

// errMalformedSize: параметр size отсутствует или не является числом
var errMalformedSize = errors.New("board size must be a positive integer")

// CellResponse: гекс в JSON представлении доски
type CellResponse struct {
	GridID hexy.GridID `json:"grid_id"`
	HexID  hexy.HexID  `json:"hex_id"`
}

// BoardResponse: JSON представление доски
type BoardResponse struct {
	Size     uint             `json:"size"`
	RowCount int              `json:"row_count"`
	HexCount int              `json:"hex_count"`
	Rows     [][]CellResponse `json:"rows"`
}

// CountResponse: число гексов и строк доски
type CountResponse struct {
	Size     uint `json:"size"`
	RowCount uint `json:"row_count"`
	HexCount uint `json:"hex_count"`
}

// HexResponse: одна клетка доски
type HexResponse struct {
	GridID hexy.GridID `json:"grid_id"`
	HexID  hexy.HexID  `json:"hex_id"`
	Free   bool        `json:"free"`
}

// parseSize разбирает параметр size и проверяет его диапазон
func (rs *RestServer) parseSize(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errMalformedSize
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errMalformedSize, raw)
	}
	size := uint(n)
	if size == 0 {
		return 0, hexy.ErrInvalidSize
	}
	if size > rs.settings.Hexy.MaxSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrSizeOutOfRange, size, rs.settings.Hexy.MaxSize)
	}
	return size, nil
}

// handleGetBoard отдаёт HTML доски для страницы /hexy/
func (rs *RestServer) handleGetBoard(c *gin.Context) {
	raw := c.Query("size")
	size, err := rs.parseSize(raw)
	if err != nil {
		rs.boardMetrics.ObserveRejected()
		logging.LogBoardRejected(raw, err)
		c.String(http.StatusNotFound, "no board")
		return
	}

	html, err := rs.boardHTML(c.Request.Context(), size)
	if err != nil {
		rs.logger.Error("Board render failed for size %d: %v", size, err)
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "board render failed")
		return
	}

	c.Data(http.StatusOK, htmlContentType, html)
}

// boardHTML возвращает HTML доски из кеша или строит и сохраняет его
func (rs *RestServer) boardHTML(ctx context.Context, size uint) ([]byte, error) {
	ctx, span := observability.Tracer().Start(ctx, "hexy.board_html")
	defer span.End()
	span.SetAttributes(attribute.Int64("hexy.size", int64(size)))

	key := cache.BoardKey(size)
	cached, err := rs.cache.Get(ctx, key)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("hexy.cache_hit", true))
		rs.boardMetrics.ObserveCacheHit()
		return cached, nil
	case !cache.IsCacheMiss(err):
		// кеш недоступен, строим доску без него
		rs.logger.Warn("Board cache read failed: %v", err)
	}
	span.SetAttributes(attribute.Bool("hexy.cache_hit", false))

	start := time.Now()
	board, err := hexy.NewBoard(size)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	html, err := rs.renderer.RenderBoard(board)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("render board of size %d: %w", size, err)
	}
	elapsed := time.Since(start)

	rs.boardMetrics.ObserveRender(board.Len(), elapsed)
	logging.LogBoardBuilt(size, board.Len(), elapsed)

	data := []byte(html)
	if err := rs.cache.Set(ctx, key, data, rs.settings.Cache.TTL); err != nil {
		rs.logger.Warn("Board cache write failed: %v", err)
	}
	return data, nil
}

// handleAPIBoard возвращает доску в JSON
func (rs *RestServer) handleAPIBoard(c *gin.Context) {
	size, err := rs.parseSize(c.Query("size"))
	if err != nil {
		rs.boardMetrics.ObserveRejected()
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	_, span := observability.Tracer().Start(c.Request.Context(), "hexy.board_json")
	defer span.End()
	span.SetAttributes(attribute.Int64("hexy.size", int64(size)))

	board, err := hexy.NewBoard(size)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Ошибка построения доски",
		})
		return
	}

	resp := BoardResponse{
		Size:     board.Size(),
		RowCount: board.RowCount(),
		HexCount: board.Len(),
		Rows:     make([][]CellResponse, 0, board.RowCount()),
	}
	for _, row := range board.Rows() {
		cells := make([]CellResponse, 0, len(row))
		for _, h := range row {
			cells = append(cells, CellResponse{GridID: h.GridID, HexID: h.HexID})
		}
		resp.Rows = append(resp.Rows, cells)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Доска построена",
		Data:    resp,
	})
}

// handleAPICount возвращает число гексов без построения доски
func (rs *RestServer) handleAPICount(c *gin.Context) {
	size, err := rs.parseSize(c.Query("size"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Количество гексов",
		Data: CountResponse{
			Size:     size,
			RowCount: hexy.RowCount(size),
			HexCount: hexy.HexCount(size),
		},
	})
}

// handleAPIHex ищет клетку доски по координатам гекса (by=hex, по умолчанию)
// или по позиции в хранилище (by=grid)
func (rs *RestServer) handleAPIHex(c *gin.Context) {
	size, err := rs.parseSize(c.Query("size"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	x, errX := strconv.ParseUint(c.Query("x"), 10, 32)
	y, errY := strconv.ParseUint(c.Query("y"), 10, 32)
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "x and y must be non-negative integers",
		})
		return
	}

	board, err := hexy.NewBoard(size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Ошибка построения доски",
		})
		return
	}

	var (
		h  hexy.Hexagon
		ok bool
	)
	switch by := c.DefaultQuery("by", "hex"); by {
	case "hex":
		h, ok = board.Lookup(hexy.HexID{X: uint(x), Y: uint(y)})
	case "grid":
		h, ok = board.At(hexy.GridID{X: uint(x), Y: uint(y)})
	default:
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("unknown lookup %q, expected hex or grid", by),
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: hexy.ErrUnknownHex.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Клетка найдена",
		Data:    HexResponse{GridID: h.GridID, HexID: h.HexID, Free: h.IsFree()},
	})
}
