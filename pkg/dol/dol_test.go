package dol

import (
	"encoding/binary"
	"testing"
)

// buildImage assembles a minimal one-text-section DOL image for tests:
// header plus the given code bytes as the first text section, loaded
// at loadAddr, with the entry point set to loadAddr.
func buildImage(loadAddr uint32, code []byte) []byte {
	buf := make([]byte, headerSize+len(code))
	binary.BigEndian.PutUint32(buf[textOffBase:], headerSize)
	binary.BigEndian.PutUint32(buf[textAddrBase:], loadAddr)
	binary.BigEndian.PutUint32(buf[textSizeBase:], uint32(len(code)))
	binary.BigEndian.PutUint32(buf[entryOff:], loadAddr)
	copy(buf[headerSize:], code)
	return buf
}

func word(w uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, w)
	return b
}

func TestLoadValidImage(t *testing.T) {
	data := buildImage(0x80003000, word(0x7C632214))

	img, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Entry != 0x80003000 {
		t.Errorf("Entry = 0x%08X, want 0x80003000", img.Entry)
	}
	if !img.IsText(0x80003000) {
		t.Errorf("0x80003000 should be text")
	}
	got, err := img.ReadWord(0x80003000)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != 0x7C632214 {
		t.Errorf("ReadWord = 0x%08X, want 0x7C632214", got)
	}
}

// Scenario 6: a text section whose declared size overruns the file
// length fails with InvalidImage; the caller never reaches per-function
// work.
func TestLoadOverrunSection(t *testing.T) {
	data := make([]byte, headerSize)
	binary.BigEndian.PutUint32(data[textOffBase:], headerSize)
	binary.BigEndian.PutUint32(data[textAddrBase:], 0x80003000)
	binary.BigEndian.PutUint32(data[textSizeBase:], 1024)
	binary.BigEndian.PutUint32(data[entryOff:], 0x80003000)

	_, err := Load(data)
	if err == nil {
		t.Fatal("expected InvalidImage, got nil")
	}
	if _, ok := err.(*InvalidImage); !ok {
		t.Fatalf("error = %T, want *InvalidImage", err)
	}
}

func TestLoadTooShort(t *testing.T) {
	_, err := Load([]byte{1, 2, 3})
	if _, ok := err.(*InvalidImage); !ok {
		t.Fatalf("error = %T, want *InvalidImage", err)
	}
}

func TestReadWordUnmapped(t *testing.T) {
	data := buildImage(0x80003000, word(0x7C632214))
	img, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := img.ReadWord(0x90000000); err == nil {
		t.Fatal("expected UnmappedAddress, got nil")
	}
}

func TestSectionDisjointness(t *testing.T) {
	data := make([]byte, headerSize+8)
	binary.BigEndian.PutUint32(data[textOffBase:], headerSize)
	binary.BigEndian.PutUint32(data[textAddrBase:], 0x80003000)
	binary.BigEndian.PutUint32(data[textSizeBase:], 4)
	binary.BigEndian.PutUint32(data[dataOffBase:], headerSize+4)
	binary.BigEndian.PutUint32(data[dataAddrBase:], 0x80003002)
	binary.BigEndian.PutUint32(data[dataSizeBase:], 4)
	binary.BigEndian.PutUint32(data[entryOff:], 0x80003000)

	_, err := Load(data)
	if err == nil {
		t.Fatal("expected overlap to be rejected")
	}
}
