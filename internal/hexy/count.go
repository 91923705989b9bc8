package hexy

// HexCount возвращает количество живых гексов на доске размера size.
// Не зависит от NewBoard и используется для его проверки.
func HexCount(size uint) uint {
	if size == 0 {
		return 0
	}

	return size*size + (size-1)*(size-1)*2 + size - 1
}
