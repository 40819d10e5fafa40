package main

import (
	"fmt"
	"strings"
)

const bytesPerRow = 16

// hexdump formats data in rows of 16 bytes, labelling rows with absolute
// addresses starting at base.
func hexdump(data []byte, base uint32) string {
	var b strings.Builder
	for row := 0; row < len(data); row += bytesPerRow {
		end := row + bytesPerRow
		if end > len(data) {
			end = len(data)
		}
		b.WriteString(hexRow(data[row:end], base+uint32(row)))
		b.WriteByte('\n')
	}
	return b.String()
}

func hexRow(row []byte, addr uint32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%08x  ", addr)
	for i := 0; i < bytesPerRow; i++ {
		if i < len(row) {
			fmt.Fprintf(&b, "%02x ", row[i])
		} else {
			b.WriteString("   ")
		}
		if i == 7 {
			b.WriteByte(' ')
		}
	}
	b.WriteString(" |")
	for _, c := range row {
		if c >= 0x20 && c < 0x7f {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	b.WriteByte('|')
	return b.String()
}
