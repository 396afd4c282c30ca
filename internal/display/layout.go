package display

type cells interface {
	setCursor(col, row int) error
	putChar(b byte) error
}

// place writes text starting at col,row and returns the new cursor position.
// A newline continues on the next row's first column, characters that
// don't fit on the current row are dropped, anything that isn't printable
// ASCII is shown as '?'.
func place(c cells, text string, col, row, cols, rows int) (int, int, error) {
	for _, r := range text {
		if r == '\n' {
			if row+1 >= rows {
				// nowhere to go, drop the rest
				col = cols
				continue
			}
			if err := c.setCursor(0, row+1); err != nil {
				return col, row, err
			}
			col, row = 0, row+1
			continue
		}

		if col >= cols {
			continue
		}

		if err := c.putChar(ascii(r)); err != nil {
			return col, row, err
		}
		col++
	}

	return col, row, nil
}

func ascii(r rune) byte {
	if r < 0x20 || r > 0x7E {
		return '?'
	}

	return byte(r)
}
