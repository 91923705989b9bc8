package hexy

import (
	"errors"
	"fmt"
)

// Ошибки построения доски
var (
	ErrInvalidSize = errors.New("hexy: board size must be at least 1")
	ErrUnknownHex  = errors.New("hexy: hex is not on the board")
)

// Board: шестиугольная доска, хранимая построчно.
// В строках лежат только живые клетки, мёртвые (выходящие за контур) пропущены.
// После построения доска не изменяется.
type Board struct {
	size  uint // количество гексов на стороне
	rows  [][]Hexagon
	count int

	byHex  map[HexID]cellRef
	byGrid map[GridID]cellRef
}

type cellRef struct {
	row, col int
}

// RowCount возвращает количество строк хранилища для доски размера size
func RowCount(size uint) uint {
	if size == 0 {
		return 0
	}
	return (size*2-1)*2 - 1
}

// isDead определяет, лежит ли ячейка (x, y) прямоугольного хранилища за контуром шестиугольника.
func isDead(x, y, size, rowCount uint) bool {
	// Верхний треугольник: ширина строки растёт на единицу
	if y < size {
		return x > y
	}

	// Нижний треугольник, симметрично верхнему
	if y > rowCount-size {
		return x >= rowCount-y
	}

	// Талия: на чередующихся строках последняя ячейка не используется
	if y%2 == size%2 {
		return x == size-1
	}
	return false
}

// NewBoard строит доску размера size.
// Для size == 0 возвращает ErrInvalidSize, никакие вычисления не выполняются.
func NewBoard(size uint) (*Board, error) {
	if size == 0 {
		return nil, fmt.Errorf("build board of size %d: %w", size, ErrInvalidSize)
	}

	rowCount := RowCount(size)
	b := &Board{
		size:   size,
		rows:   make([][]Hexagon, 0, rowCount),
		byHex:  make(map[HexID]cellRef, HexCount(size)),
		byGrid: make(map[GridID]cellRef, HexCount(size)),
	}

	for y := uint(0); y < rowCount; y++ {
		row := make([]Hexagon, 0, size)

		for x := uint(0); x < size; x++ {
			if isDead(x, y, size, rowCount) {
				continue
			}

			h := Hexagon{
				GridID: GridID{X: x, Y: y},
				HexID:  HexIDFromGrid(x, y, size),
				State:  Free{},
			}
			ref := cellRef{row: len(b.rows), col: len(row)}
			b.byHex[h.HexID] = ref
			b.byGrid[h.GridID] = ref
			row = append(row, h)
		}

		b.count += len(row)
		b.rows = append(b.rows, row)
	}

	return b, nil
}

// Size возвращает количество гексов на стороне доски
func (b *Board) Size() uint { return b.size }

// RowCount возвращает количество строк доски
func (b *Board) RowCount() int { return len(b.rows) }

// Len возвращает общее количество живых клеток
func (b *Board) Len() int { return b.count }

// Rows возвращает копию строк доски.
// Порядок строк: по возрастанию Y, внутри строки: по возрастанию X.
func (b *Board) Rows() [][]Hexagon {
	rows := make([][]Hexagon, len(b.rows))
	for i, row := range b.rows {
		rows[i] = append([]Hexagon(nil), row...)
	}
	return rows
}

// Row возвращает копию строки y
func (b *Board) Row(y int) []Hexagon {
	if y < 0 || y >= len(b.rows) {
		return nil
	}
	return append([]Hexagon(nil), b.rows[y]...)
}

// Lookup ищет клетку по координатам гекса
func (b *Board) Lookup(id HexID) (Hexagon, bool) {
	ref, ok := b.byHex[id]
	if !ok {
		return Hexagon{}, false
	}
	return b.rows[ref.row][ref.col], true
}

// At ищет клетку по позиции в хранилище
func (b *Board) At(id GridID) (Hexagon, bool) {
	ref, ok := b.byGrid[id]
	if !ok {
		return Hexagon{}, false
	}
	return b.rows[ref.row][ref.col], true
}

// WithState возвращает новую доску, в которой у клетки id заменено состояние.
// Исходная доска не меняется.
func (b *Board) WithState(id HexID, state HexState) (*Board, error) {
	ref, ok := b.byHex[id]
	if !ok {
		return nil, fmt.Errorf("set state of %s: %w", id, ErrUnknownHex)
	}
	if state == nil {
		state = Free{}
	}

	next := &Board{
		size:   b.size,
		rows:   b.Rows(),
		count:  b.count,
		byHex:  b.byHex,
		byGrid: b.byGrid,
	}
	next.rows[ref.row][ref.col].State = state
	return next, nil
}
