package rawflate

import (
	"errors"
	"io"
)

var (
	errInvalidBlockType  = errors.New("rawflate: invalid block type")
	errCorruptStoredLen  = errors.New("rawflate: stored block length mismatch")
	errInvalidLengthCode = errors.New("rawflate: invalid length code")
	errInvalidDistCode   = errors.New("rawflate: invalid distance code")
	errInvalidRepeatCode = errors.New("rawflate: invalid code-length repeat")
)

// Decoder decodes a raw DEFLATE stream (RFC 1951) one block at a time,
// exposing its position between blocks so a caller can record it and
// resume decoding later from an equivalent Decoder primed with a
// dictionary and the recorded bit position, without replaying the whole
// stream from the start.
type Decoder struct {
	br  *bitReader
	win *window

	final bool
}

// NewDecoder returns a Decoder reading raw deflate data from src. Call
// SetDictionary and Resume before the first ReadBlock if this decoder is
// resuming mid-stream at a previously recorded boundary; for a stream
// being decoded from its true start, neither is needed.
func NewDecoder(src io.ByteReader) *Decoder {
	return &Decoder{br: newBitReader(src), win: &window{}}
}

// SetDictionary primes the decoder's 32 KiB back-reference window, as
// returned by a previous Decoder's Snapshot at the point Boundary was
// read.
func (d *Decoder) SetDictionary(dict []byte) {
	d.win.prime(dict)
}

// Resume seeds the bit reader to continue a block whose first bit is among
// the last startBits (most significant) bits of the next byte src
// produces; that byte's other 8-startBits bits are skipped. Call this once, before the first
// ReadBlock, with the startBits value returned by the original decoder's
// Boundary at the point it stopped.
func (d *Decoder) Resume(startBits uint) error {
	return d.br.prime(startBits)
}

// Boundary returns the current position as (byte offset relative to src's
// start, bits of the byte at that offset not yet consumed; 0 when the
// position is byte-aligned). A fresh
// Decoder over src re-seeked to byteOffset, with Resume(startBits) called
// before its first ReadBlock, continues decoding from exactly this point.
func (d *Decoder) Boundary() (byteOffset int64, startBits uint) {
	return d.br.boundary()
}

// Snapshot returns the current contents of the 32 KiB back-reference
// window, to be handed to a later Decoder's SetDictionary.
func (d *Decoder) Snapshot() []byte {
	return d.win.snapshot()
}

// Done reports whether the most recently read block had BFINAL set.
func (d *Decoder) Done() bool {
	return d.final
}

// ReadBlock decodes exactly one DEFLATE block and returns the bytes it
// produced. final is true if this was the last block in the stream (no
// further ReadBlock calls should be made).
func (d *Decoder) ReadBlock() (data []byte, final bool, err error) {
	if d.final {
		return nil, true, io.EOF
	}

	bfinal, err := d.br.readBit()
	if err != nil {
		return nil, false, err
	}
	btype, err := d.br.readBits(2)
	if err != nil {
		return nil, false, err
	}

	var out []byte
	emit := func(b byte) { out = append(out, b) }

	switch btype {
	case 0:
		if err := d.readStoredBlock(emit); err != nil {
			return nil, false, err
		}
	case 1:
		if err := d.decodeHuffmanBlock(fixedLitLenRoot, fixedDistRoot, emit); err != nil {
			return nil, false, err
		}
	case 2:
		litRoot, distRoot, err := d.readDynamicTables()
		if err != nil {
			return nil, false, err
		}
		if err := d.decodeHuffmanBlock(litRoot, distRoot, emit); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, errInvalidBlockType
	}

	if bfinal == 1 {
		d.final = true
	}
	return out, d.final, nil
}

func (d *Decoder) readStoredBlock(emit func(byte)) error {
	d.br.alignByte()
	b0, err := d.br.readByte()
	if err != nil {
		return err
	}
	b1, err := d.br.readByte()
	if err != nil {
		return err
	}
	n0, err := d.br.readByte()
	if err != nil {
		return err
	}
	n1, err := d.br.readByte()
	if err != nil {
		return err
	}
	length := int(b0) | int(b1)<<8
	nlength := int(n0) | int(n1)<<8
	if length != (^nlength)&0xFFFF {
		return errCorruptStoredLen
	}
	for i := 0; i < length; i++ {
		b, err := d.br.readByte()
		if err != nil {
			return err
		}
		emit(b)
		d.win.writeByte(b)
	}
	return nil
}

func (d *Decoder) decodeHuffmanBlock(litRoot, distRoot *huffNode, emit func(byte)) error {
	for {
		sym, err := decodeSymbol(d.br, litRoot)
		if err != nil {
			return err
		}
		if sym == 256 {
			return nil
		}
		if sym < 256 {
			b := byte(sym)
			emit(b)
			d.win.writeByte(b)
			continue
		}
		idx := sym - 257
		if idx < 0 || idx >= len(lengthTable) {
			return errInvalidLengthCode
		}
		le := lengthTable[idx]
		extra, err := d.br.readBits(le.extra)
		if err != nil {
			return err
		}
		length := le.base + int(extra)

		dsym, err := decodeSymbol(d.br, distRoot)
		if err != nil {
			return err
		}
		if dsym < 0 || dsym >= len(distTable) {
			return errInvalidDistCode
		}
		de := distTable[dsym]
		dextra, err := d.br.readBits(de.extra)
		if err != nil {
			return err
		}
		dist := de.base + int(dextra)

		if err := d.win.copyMatch(dist, length, emit); err != nil {
			return err
		}
	}
}

func (d *Decoder) readDynamicTables() (litRoot, distRoot *huffNode, err error) {
	hlitBits, err := d.br.readBits(5)
	if err != nil {
		return nil, nil, err
	}
	hlit := int(hlitBits) + 257

	hdistBits, err := d.br.readBits(5)
	if err != nil {
		return nil, nil, err
	}
	hdist := int(hdistBits) + 1

	hclenBits, err := d.br.readBits(4)
	if err != nil {
		return nil, nil, err
	}
	hclen := int(hclenBits) + 4

	var clLengths [19]int
	for i := 0; i < hclen; i++ {
		v, err := d.br.readBits(3)
		if err != nil {
			return nil, nil, err
		}
		clLengths[clOrder[i]] = int(v)
	}
	clRoot := buildHuffman(clLengths[:])

	allLengths, err := decodeLengths(d.br, clRoot, hlit+hdist)
	if err != nil {
		return nil, nil, err
	}
	litRoot = buildHuffman(allLengths[:hlit])
	distRoot = buildHuffman(allLengths[hlit:])
	return litRoot, distRoot, nil
}

// decodeLengths decodes total code lengths (for the combined
// literal/length and distance alphabets) using the code-length Huffman
// tree clRoot, including the 16/17/18 run-length codes, RFC 1951 §3.2.7.
func decodeLengths(br *bitReader, clRoot *huffNode, total int) ([]int, error) {
	lengths := make([]int, total)
	i := 0
	prev := 0
	for i < total {
		sym, err := decodeSymbol(br, clRoot)
		if err != nil {
			return nil, err
		}
		switch {
		case sym < 16:
			lengths[i] = sym
			prev = sym
			i++
		case sym == 16:
			if i == 0 {
				return nil, errInvalidRepeatCode
			}
			n, err := br.readBits(2)
			if err != nil {
				return nil, err
			}
			repeat := 3 + int(n)
			for j := 0; j < repeat && i < total; j++ {
				lengths[i] = prev
				i++
			}
		case sym == 17:
			n, err := br.readBits(3)
			if err != nil {
				return nil, err
			}
			repeat := 3 + int(n)
			for j := 0; j < repeat && i < total; j++ {
				lengths[i] = 0
				i++
			}
			prev = 0
		case sym == 18:
			n, err := br.readBits(7)
			if err != nil {
				return nil, err
			}
			repeat := 11 + int(n)
			for j := 0; j < repeat && i < total; j++ {
				lengths[i] = 0
				i++
			}
			prev = 0
		default:
			return nil, errInvalidRepeatCode
		}
	}
	return lengths, nil
}
