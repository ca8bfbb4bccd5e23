package source

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/arloliu/insitu/types"
	"github.com/zeebo/xxh3"
)

// manifest describes one published step.
type manifest struct {
	// Seq is the writer's publish sequence, independent of Step.
	Seq  uint64 `json:"seq"`
	Step uint64 `json:"step"`

	// Final marks the end of the stream; a final manifest carries no variables.
	Final bool `json:"final,omitempty"`

	Variables []manifestVariable `json:"variables,omitempty"`
}

// manifestVariable is a variable's metadata plus one checksum per block.
type manifestVariable struct {
	types.VariableInfo
	Checksums []uint64 `json:"checksums"`
}

// lookup returns the variable with the given name.
func (m *manifest) lookup(name string) (manifestVariable, bool) {
	for _, v := range m.Variables {
		if v.Name == name {
			return v, true
		}
	}

	return manifestVariable{}, false
}

// newManifest builds the manifest of a step and the encoded payload of each
// block, keyed by variable then block index.
func newManifest(seq uint64, step StepData) (*manifest, [][][]byte) {
	m := &manifest{Seq: seq, Step: step.Step, Variables: make([]manifestVariable, len(step.Variables))}
	payloads := make([][][]byte, len(step.Variables))
	for i, v := range step.Variables {
		mv := manifestVariable{VariableInfo: v.Info(), Checksums: make([]uint64, len(v.Blocks))}
		payloads[i] = make([][]byte, len(v.Blocks))
		for j, b := range v.Blocks {
			payload := encodeFloats(b.Data)
			payloads[i][j] = payload
			mv.Checksums[j] = xxh3.Hash(payload)
		}
		m.Variables[i] = mv
	}

	return m, payloads
}

func (m *manifest) marshal() ([]byte, error) {
	return json.Marshal(m)
}

func unmarshalManifest(data []byte) (*manifest, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode step manifest: %w", err)
	}

	return &m, nil
}

// decodeBlock verifies payload against its checksum and decodes it into dst.
func decodeBlock(v manifestVariable, index int, payload []byte, dst []float64) error {
	if index < len(v.Checksums) {
		if sum := xxh3.Hash(payload); sum != v.Checksums[index] {
			return fmt.Errorf("block %d of %q: checksum mismatch (%016x != %016x)", index, v.Name, sum, v.Checksums[index])
		}
	}

	return decodeFloats(payload, dst)
}

// encodeFloats encodes values as little-endian IEEE 754 doubles.
func encodeFloats(values []float64) []byte {
	buf := make([]byte, 0, len(values)*8)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}

	return buf
}

// decodeFloats decodes little-endian doubles into dst, which must match exactly.
func decodeFloats(payload []byte, dst []float64) error {
	if len(payload) != len(dst)*8 {
		return fmt.Errorf("payload has %d bytes, want %d", len(payload), len(dst)*8)
	}
	for i := range dst {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
	}

	return nil
}

// blockBounds checks index against the variable's block list.
func blockBounds(v manifestVariable, index int) (types.BlockInfo, error) {
	if index < 0 || index >= len(v.Blocks) {
		return types.BlockInfo{}, fmt.Errorf("block %d of %q out of range [0, %d)", index, v.Name, len(v.Blocks))
	}

	return v.Blocks[index], nil
}
