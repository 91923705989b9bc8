package middleware

import (
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// Gzip сжимает ответы для клиентов с Accept-Encoding: gzip.
// Пути из exclude (по префиксу) отдаются как есть.
type Gzip struct {
	pool    sync.Pool
	exclude []string
}

// NewGzip создаёт middleware с уровнем сжатия level (см. gzip.BestSpeed и т.д.).
// Некорректный уровень заменяется на gzip.DefaultCompression.
func NewGzip(level int, exclude ...string) *Gzip {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	g := &Gzip{exclude: exclude}
	g.pool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, level)
		return w
	}
	return g
}

func (g *Gzip) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.shouldCompress(c) {
			c.Next()
			return
		}

		gz := g.pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)
		gw := &gzipWriter{ResponseWriter: c.Writer, gz: gz}
		c.Header("Vary", "Accept-Encoding")
		c.Writer = gw

		defer func() {
			if gw.started {
				_ = gz.Close()
			}
			gz.Reset(io.Discard)
			g.pool.Put(gz)
		}()

		c.Next()
	}
}

// shouldCompress: ответы на Range-запросы не сжимаются, Content-Range
// относится к несжатым байтам
func (g *Gzip) shouldCompress(c *gin.Context) bool {
	if c.Request.Method == "HEAD" {
		return false
	}
	if c.GetHeader("Range") != "" {
		return false
	}
	if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
		return false
	}
	path := c.Request.URL.Path
	for _, prefix := range g.exclude {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// gzipWriter подменяет тело ответа. Заголовки выставляются при первой записи,
// поэтому пустые ответы (редиректы без тела, 204) остаются несжатыми.
type gzipWriter struct {
	gin.ResponseWriter
	gz      *gzip.Writer
	started bool
}

func (w *gzipWriter) start() {
	if w.started {
		return
	}
	w.started = true
	h := w.ResponseWriter.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	w.start()
	return w.gz.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// WriteHeader убирает Content-Length, выставленный обработчиком до записи тела
func (w *gzipWriter) WriteHeader(code int) {
	w.ResponseWriter.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipWriter) Flush() {
	if w.started {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}
