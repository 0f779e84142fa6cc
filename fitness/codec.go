package fitness

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Wire kind tags. The spec's binary layout table documents the
// MultiObjective case (int32 numObjectives, numObjectives x float32
// objectives, bool maximize) as the common case; Scalar (a single
// float64) and SPEA2 (the MultiObjective fields followed by a float64
// SPEA2Fitness) are encoded under their own tags so any Fitness
// implementation round-trips through EncodeBinary/DecodeBinary.
const (
	kindScalar byte = iota
	kindMultiObjective
	kindSPEA2
)

// EncodeBinary writes f in the wire format described by spec §4.5.
func EncodeBinary(w io.Writer, f Fitness) error {
	switch v := f.(type) {
	case *ScalarFitness:
		if err := writeByte(w, kindScalar); err != nil {
			return err
		}
		return writeFloat64(w, v.Value)
	case *SPEA2:
		if err := writeByte(w, kindSPEA2); err != nil {
			return err
		}
		if err := writeMultiObjective(w, &v.MultiObjective); err != nil {
			return err
		}
		return writeFloat64(w, v.SPEA2Fitness)
	case *MultiObjective:
		if err := writeByte(w, kindMultiObjective); err != nil {
			return err
		}
		return writeMultiObjective(w, v)
	default:
		return fmt.Errorf("fitness: EncodeBinary: unsupported fitness type %T", f)
	}
}

// DecodeBinary reads a Fitness value previously written by EncodeBinary.
func DecodeBinary(r io.Reader) (Fitness, error) {
	kind, err := readByte(r)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindScalar:
		v, err := readFloat64(r)
		if err != nil {
			return nil, err
		}
		return &ScalarFitness{Value: v}, nil
	case kindMultiObjective:
		mo, err := readMultiObjective(r)
		if err != nil {
			return nil, err
		}
		return mo, nil
	case kindSPEA2:
		mo, err := readMultiObjective(r)
		if err != nil {
			return nil, err
		}
		sf, err := readFloat64(r)
		if err != nil {
			return nil, err
		}
		return &SPEA2{MultiObjective: *mo, SPEA2Fitness: sf}, nil
	default:
		return nil, fmt.Errorf("fitness: DecodeBinary: unknown kind tag %d", kind)
	}
}

func writeMultiObjective(w io.Writer, mo *MultiObjective) error {
	if err := writeInt32(w, int32(len(mo.Objectives))); err != nil {
		return err
	}
	for _, v := range mo.Objectives {
		if err := writeFloat32(w, float32(v)); err != nil {
			return err
		}
	}
	return writeBool(w, mo.Maximize)
}

func readMultiObjective(r io.Reader) (*MultiObjective, error) {
	n, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	objs := make([]float64, n)
	for i := range objs {
		v, err := readFloat32(r)
		if err != nil {
			return nil, err
		}
		objs[i] = float64(v)
	}
	max, err := readBool(r)
	if err != nil {
		return nil, err
	}
	return &MultiObjective{Objectives: objs, Maximize: max}, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func writeBool(w io.Writer, b bool) error {
	if b {
		return writeByte(w, 1)
	}
	return writeByte(w, 0)
}

func readBool(r io.Reader) (bool, error) {
	b, err := readByte(r)
	return b != 0, err
}

func writeInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func writeFloat32(w io.Writer, v float32) error {
	return writeInt32(w, int32(math.Float32bits(v)))
}

func readFloat32(r io.Reader) (float32, error) {
	v, err := readInt32(r)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

func writeFloat64(w io.Writer, v float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}

func readFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}
