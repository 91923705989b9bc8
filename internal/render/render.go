// Package render превращает доску и фрагменты инструментов в HTML.
// Шаблоны встроены в бинарник, конфигурация передаётся явно при создании Renderer.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/annel0/hexy-web/internal/hexy"
)

//go:embed templates/*.html
var templateFS embed.FS

const hiddenStyle template.CSS = "display: none;"

// Options: настройки отрисовки
type Options struct {
	Palette    []string // цвета команд, выбираются по team % len(Palette)
	EmptyGlyph string   // подпись фишки со значением 0
}

// Renderer отрисовывает доску, гексы и фрагменты интерфейса.
// Безопасен для параллельного использования.
type Renderer struct {
	tmpl       *template.Template
	palette    []string
	emptyGlyph string
}

// NavItem: пункт навигационной панели
type NavItem struct {
	Key    string
	Title  string
	Href   string
	Active bool
}

// StageOption: вариант стадии в выпадающем списке конструктора
type StageOption struct {
	Value     string
	Title     string
	Signature string
}

type hexagonView struct {
	GridID     string
	HexID      string
	PieceStyle template.CSS
	ValueStyle template.CSS
	Label      string
}

type boardView struct {
	Size uint
	Rows [][]hexagonView
}

// New разбирает встроенные шаблоны и создаёт Renderer
func New(opts Options) (*Renderer, error) {
	if len(opts.Palette) == 0 {
		return nil, fmt.Errorf("render: palette must not be empty")
	}
	if opts.EmptyGlyph == "" {
		opts.EmptyGlyph = "\U0001F542"
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}

	return &Renderer{
		tmpl:       tmpl,
		palette:    append([]string(nil), opts.Palette...),
		emptyGlyph: opts.EmptyGlyph,
	}, nil
}

// TeamColor возвращает цвет команды
func (r *Renderer) TeamColor(team uint) string {
	return r.palette[team%uint(len(r.palette))]
}

func (r *Renderer) hexagonView(h hexy.Hexagon) (hexagonView, error) {
	view := hexagonView{
		GridID:     h.GridID.String(),
		HexID:      h.HexID.String(),
		PieceStyle: hiddenStyle,
		ValueStyle: hiddenStyle,
	}

	switch state := h.State.(type) {
	case nil, hexy.Free:
	case hexy.Piece:
		view.PieceStyle = template.CSS("color: " + r.TeamColor(state.Team))
		view.ValueStyle = ""
		if state.Value == 0 {
			view.Label = r.emptyGlyph
		} else {
			view.Label = strconv.FormatUint(uint64(state.Value), 10)
		}
	default:
		return hexagonView{}, fmt.Errorf("render: unknown hex state %T", state)
	}

	return view, nil
}

// RenderHexagon отрисовывает одну клетку
func (r *Renderer) RenderHexagon(h hexy.Hexagon) (template.HTML, error) {
	view, err := r.hexagonView(h)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "hexagon", view); err != nil {
		return "", fmt.Errorf("render hexagon %s: %w", h.HexID, err)
	}
	return template.HTML(buf.String()), nil
}

// WriteBoard пишет HTML доски в w: строки снаружи, клетки внутри
func (r *Renderer) WriteBoard(w io.Writer, b *hexy.Board) error {
	if b == nil {
		return fmt.Errorf("render: nil board")
	}

	rows := b.Rows()
	view := boardView{Size: b.Size(), Rows: make([][]hexagonView, len(rows))}
	for y, row := range rows {
		cells := make([]hexagonView, len(row))
		for x, h := range row {
			cell, err := r.hexagonView(h)
			if err != nil {
				return err
			}
			cells[x] = cell
		}
		view.Rows[y] = cells
	}

	if err := r.tmpl.ExecuteTemplate(w, "board", view); err != nil {
		return fmt.Errorf("render board of size %d: %w", b.Size(), err)
	}
	return nil
}

// RenderBoard возвращает HTML доски строкой
func (r *Renderer) RenderBoard(b *hexy.Board) (string, error) {
	var buf bytes.Buffer
	if err := r.WriteBoard(&buf, b); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NavItems возвращает пункты навигации; пункт active подсвечивается.
// Пустой active означает "home", неизвестный не подсвечивает ничего.
func NavItems(active string) []NavItem {
	if active == "" {
		active = "home"
	}

	items := []NavItem{
		{Key: "home", Title: "Home", Href: "/"},
		{Key: "csv_mfr", Title: "CSV MFR", Href: "/csv_mfr/"},
		{Key: "hexy", Title: "Hexy", Href: "/hexy/"},
	}
	for i := range items {
		items[i].Active = items[i].Key == active
	}
	return items
}

// RenderNavbar отрисовывает навигационную панель
func (r *Renderer) RenderNavbar(active string) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "navbar", NavItems(active)); err != nil {
		return "", fmt.Errorf("render navbar: %w", err)
	}
	return buf.String(), nil
}

// RenderPipelineStage отрисовывает пустую секцию стадии конвейера
func (r *Renderer) RenderPipelineStage(options []StageOption) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "pipeline_stage", options); err != nil {
		return "", fmt.Errorf("render pipeline stage: %w", err)
	}
	return buf.String(), nil
}

// RenderStageBox отрисовывает поле ввода тела стадии
func (r *Renderer) RenderStageBox(id string) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "stage_box", id); err != nil {
		return "", fmt.Errorf("render stage box: %w", err)
	}
	return buf.String(), nil
}
