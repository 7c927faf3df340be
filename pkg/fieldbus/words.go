// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fieldbus

import (
	"encoding/binary"
	"fmt"
)

// coil write payload per the Modbus spec: 0xFF00 on, 0x0000 off
const coilOn uint16 = 0xFF00

// wordsFromBytes converts a big-endian register payload into words.
func wordsFromBytes(data []byte, quantity uint16) ([]uint16, error) {
	if len(data) < int(quantity)*2 {
		return nil, fmt.Errorf("short register payload: got %d bytes, want %d", len(data), quantity*2)
	}
	words := make([]uint16, quantity)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return words, nil
}

// coilsFromBytes unpacks a coil status payload. Coils are packed
// LSB-first: bit 0 of the first byte is the first addressed coil.
func coilsFromBytes(data []byte, quantity uint16) ([]bool, error) {
	if len(data)*8 < int(quantity) {
		return nil, fmt.Errorf("short coil payload: got %d bytes for %d coils", len(data), quantity)
	}
	coils := make([]bool, quantity)
	for i := range coils {
		coils[i] = data[i/8]&(1<<(i%8)) != 0
	}
	return coils, nil
}
