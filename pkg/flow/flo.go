package flow

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Middlebury .flo format: a float32 magic number (reads as "PIEH" in ASCII),
// int32 width and height, then width*height interleaved (u, v) float32
// pairs, row major, little endian.
const floMagic = 202021.25

const maxFloDimension = 99999

const floHeaderSize = 12

type floHeader struct {
	Magic  float32
	Width  int32
	Height int32
}

// ReadFlo reads a Middlebury .flo optical flow file
func ReadFlo(filename string) (*Field, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("Error opening flow file %v: %w", filename, err)
	}
	defer file.Close()

	header := floHeader{}
	if err := binary.Read(file, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("Error reading flow file header of %v: %w", filename, err)
	}
	if header.Magic != floMagic {
		return nil, fmt.Errorf("Invalid flow file %v: bad magic number %v", filename, header.Magic)
	}
	if header.Width <= 0 || header.Height <= 0 || header.Width > maxFloDimension || header.Height > maxFloDimension {
		return nil, fmt.Errorf("Invalid flow file %v: unreasonable dimensions %vx%v", filename, header.Width, header.Height)
	}

	// Check the claimed dimensions against the actual file size before
	// allocating, so that a corrupt header can't drive a giant allocation
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("Error reading flow file %v: %w", filename, err)
	}
	needBytes := int64(header.Width)*int64(header.Height)*8 + floHeaderSize
	if info.Size() < needBytes {
		return nil, fmt.Errorf("Invalid flow file %v: %vx%v flow needs %v bytes, file is %v", filename, header.Width, header.Height, needBytes, info.Size())
	}

	f := NewField(int(header.Width), int(header.Height))
	if err := binary.Read(file, binary.LittleEndian, f.Values); err != nil {
		return nil, fmt.Errorf("Error reading flow data of %v: %w", filename, err)
	}
	return f, nil
}

// WriteFlo writes a Middlebury .flo optical flow file
func WriteFlo(filename string, f *Field) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("Error creating flow file %v: %w", filename, err)
	}
	defer file.Close()

	header := floHeader{
		Magic:  floMagic,
		Width:  int32(f.Width),
		Height: int32(f.Height),
	}
	if err := binary.Write(file, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("Error writing flow file header of %v: %w", filename, err)
	}
	if err := binary.Write(file, binary.LittleEndian, f.Values); err != nil {
		return fmt.Errorf("Error writing flow data of %v: %w", filename, err)
	}
	return nil
}
