// Package csvmfr содержит серверную часть конструктора CSV-конвейера:
// типы стадий и HTML-фрагменты, которые подгружает страница. Разбор CSV и
// выполнение стадий происходят в браузере.
package csvmfr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/annel0/hexy-web/internal/render"
)

// ErrUnknownStage возвращается для неизвестного типа стадии
var ErrUnknownStage = errors.New("csvmfr: unknown stage type")

// StageType: тип стадии конвейера
type StageType string

const (
	StageMap    StageType = "map"
	StageFilter StageType = "filter"
	StageReduce StageType = "reduce"
)

// StageTypes: все типы стадий в порядке отображения
var StageTypes = []StageType{StageMap, StageFilter, StageReduce}

// Signature возвращает начало JS-функции, в которую подставляется тело стадии
func (s StageType) Signature() string {
	switch s {
	case StageMap:
		return "function do_map (value, index, array) {"
	case StageFilter:
		return "function do_filter (value, index, array) {"
	case StageReduce:
		return "function do_reduce (previousValue, currentValue, currentIndex, array) {"
	default:
		return ""
	}
}

// Title возвращает название стадии с заглавной буквы
func (s StageType) Title() string {
	if s == "" {
		return ""
	}
	str := strings.ToLower(string(s))
	return strings.ToUpper(str[:1]) + str[1:]
}

// ParseStageType разбирает тип стадии без учёта регистра
func ParseStageType(raw string) (StageType, error) {
	candidate := StageType(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range StageTypes {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
}

// Builder отдаёт HTML-фрагменты конструктора
type Builder struct {
	renderer *render.Renderer
}

// NewBuilder создаёт Builder поверх общего Renderer
func NewBuilder(renderer *render.Renderer) *Builder {
	return &Builder{renderer: renderer}
}

// PipelineStage возвращает пустую секцию стадии со списком всех типов
func (b *Builder) PipelineStage() (string, error) {
	options := make([]render.StageOption, 0, len(StageTypes))
	for _, s := range StageTypes {
		options = append(options, render.StageOption{
			Value:     string(s),
			Title:     s.Title(),
			Signature: s.Signature(),
		})
	}
	return b.renderer.RenderPipelineStage(options)
}

// StageBox возвращает поле ввода для стадии указанного типа
func (b *Builder) StageBox(raw string) (string, error) {
	stage, err := ParseStageType(raw)
	if err != nil {
		return "", err
	}
	return b.renderer.RenderStageBox(string(stage))
}
