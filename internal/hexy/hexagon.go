package hexy

import "fmt"

// HexID: координаты гекса на самой доске, как клетки на шахматной доске.
// На экране самый верхний гекс имеет HexID (1, 1). Движение влево увеличивает X,
// движение вправо увеличивает Y.
type HexID struct {
	X uint `json:"x"`
	Y uint `json:"y"`
}

// String возвращает координаты в виде "(x, y)"
func (h HexID) String() string {
	return fmt.Sprintf("(%d, %d)", h.X, h.Y)
}

// GridID: индексы гекса внутри прямоугольного хранилища доски (строка Y, столбец X).
// Используется только для внутренней адресации.
type GridID struct {
	X uint `json:"x"`
	Y uint `json:"y"`
}

// String возвращает координаты в виде "(x, y)"
func (g GridID) String() string {
	return fmt.Sprintf("(%d, %d)", g.X, g.Y)
}

// ToHexID переводит позицию в хранилище в координаты гекса для доски размера size
func (g GridID) ToHexID(size uint) HexID {
	return HexIDFromGrid(g.X, g.Y, size)
}

// HexIDFromGrid переводит позицию (gridX, gridY) хранилища в координаты гекса.
//
// Строки проходятся сверху вниз тремя участками:
//   - верхняя половина (i <= firstCorner): каждая строка сдвигает X на единицу;
//   - "талия" шестиугольника: X и Y растут по очереди через строку;
//   - нижняя половина (i > secondCorner): каждая строка сдвигает Y на единицу.
//
// Шаг по столбцу уменьшает X и увеличивает Y.
// size должен быть >= 1, проверка выполняется в NewBoard.
func HexIDFromGrid(gridX, gridY, size uint) HexID {
	firstCorner := size - 1
	secondCorner := firstCorner*3 + 2

	var x, y uint = 1, 1
	for i := uint(1); i <= gridY; i++ {
		switch {
		case i <= firstCorner:
			x++
		case i <= secondCorner:
			x += (i - firstCorner + 1) % 2
			y += (i - firstCorner) % 2
		default:
			y++
		}
	}

	return HexID{X: x - gridX, Y: y + gridX}
}

// HexState: состояние клетки. Закрытое множество вариантов: Free или Piece.
type HexState interface {
	hexState()
}

// Free: пустая клетка
type Free struct{}

// Piece: фишка команды Team со значением Value
type Piece struct {
	Team  uint `json:"team"`
	Value uint `json:"value"`
}

func (Free) hexState()  {}
func (Piece) hexState() {}

// Hexagon: живая клетка доски
type Hexagon struct {
	GridID GridID
	HexID  HexID
	State  HexState
}

// IsFree сообщает, свободна ли клетка. Nil-состояние считается свободным.
func (h Hexagon) IsFree() bool {
	switch h.State.(type) {
	case Piece:
		return false
	default:
		return true
	}
}
