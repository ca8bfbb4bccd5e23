package backend

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/insitu/types"
)

// Relay frame header names.
const (
	HeaderRun     = "Insitu-Run"
	HeaderStep    = "Insitu-Step"
	HeaderRank    = "Insitu-Rank"
	HeaderDomain  = "Insitu-Domain"
	HeaderOrigin  = "Insitu-Origin"
	HeaderSpacing = "Insitu-Spacing"
	HeaderDims    = "Insitu-Dims"
	HeaderFields  = "Insitu-Fields"
)

// FrameContentType is the content type of relay frame bodies.
const FrameContentType = "application/x-insitu-float64le"

var errMalformedFrame = errors.New("malformed relay frame")

// Frame is one domain of a step in relay wire form.
//
// Body holds the values of every field listed in the fields header,
// concatenated in that order as little-endian float64. The body is a copy, so
// frames stay valid after the step ends.
type Frame struct {
	Headers map[string]string
	Body    []byte
}

// Decoded is a frame turned back into a domain.
type Decoded struct {
	RunID  string
	Step   uint64
	Rank   int
	Domain types.Domain
}

// EncodeFrames converts every domain of the payload into a relay frame.
func EncodeFrames(runID string, payload *types.MeshPayload) []Frame {
	frames := make([]Frame, 0, len(payload.Domains))
	for i := range payload.Domains {
		frames = append(frames, encodeDomain(runID, payload.Step, payload.Rank, &payload.Domains[i]))
	}

	return frames
}

func encodeDomain(runID string, step uint64, rank int, d *types.Domain) Frame {
	names := make([]string, 0, len(d.Fields))
	size := 0
	for _, f := range d.Fields {
		names = append(names, f.Name)
		size += len(f.Values) * 8
	}

	body := make([]byte, 0, size)
	for _, f := range d.Fields {
		for _, v := range f.Values {
			body = binary.LittleEndian.AppendUint64(body, math.Float64bits(v))
		}
	}

	c := d.Coords

	return Frame{
		Headers: map[string]string{
			HeaderRun:     runID,
			HeaderStep:    strconv.FormatUint(step, 10),
			HeaderRank:    strconv.Itoa(rank),
			HeaderDomain:  strconv.Itoa(d.ID),
			HeaderOrigin:  joinFloats(c.Origin),
			HeaderSpacing: joinFloats(c.Spacing),
			HeaderDims:    fmt.Sprintf("%d,%d,%d", c.Dims[0], c.Dims[1], c.Dims[2]),
			HeaderFields:  strings.Join(names, ","),
		},
		Body: body,
	}
}

// DecodeFrame rebuilds a domain from relay headers and body.
//
// Parameters:
//   - headers: Frame headers, keyed by the Header* names
//   - body: Concatenated little-endian float64 field values
//
// Returns:
//   - Decoded: Run, step, rank and the domain with vertex-associated fields
//   - error: Missing or malformed header, or a body size mismatch
func DecodeFrame(headers map[string]string, body []byte) (Decoded, error) {
	var out Decoded
	var err error

	out.RunID = headers[HeaderRun]
	if out.Step, err = strconv.ParseUint(headers[HeaderStep], 10, 64); err != nil {
		return Decoded{}, fmt.Errorf("%w: step: %w", errMalformedFrame, err)
	}
	if out.Rank, err = strconv.Atoi(headers[HeaderRank]); err != nil {
		return Decoded{}, fmt.Errorf("%w: rank: %w", errMalformedFrame, err)
	}
	if out.Domain.ID, err = strconv.Atoi(headers[HeaderDomain]); err != nil {
		return Decoded{}, fmt.Errorf("%w: domain: %w", errMalformedFrame, err)
	}
	if out.Domain.Coords.Origin, err = splitFloats(headers[HeaderOrigin]); err != nil {
		return Decoded{}, fmt.Errorf("%w: origin: %w", errMalformedFrame, err)
	}
	if out.Domain.Coords.Spacing, err = splitFloats(headers[HeaderSpacing]); err != nil {
		return Decoded{}, fmt.Errorf("%w: spacing: %w", errMalformedFrame, err)
	}

	dims := strings.Split(headers[HeaderDims], ",")
	if len(dims) != 3 {
		return Decoded{}, fmt.Errorf("%w: dims %q", errMalformedFrame, headers[HeaderDims])
	}
	for i, s := range dims {
		if out.Domain.Coords.Dims[i], err = strconv.ParseUint(s, 10, 64); err != nil {
			return Decoded{}, fmt.Errorf("%w: dims: %w", errMalformedFrame, err)
		}
	}

	names := strings.Split(headers[HeaderFields], ",")
	if headers[HeaderFields] == "" {
		return Decoded{}, fmt.Errorf("%w: no fields", errMalformedFrame)
	}

	n := int(out.Domain.Coords.Vertices())
	if len(body) != n*8*len(names) {
		return Decoded{}, fmt.Errorf("%w: body has %d bytes, want %d", errMalformedFrame, len(body), n*8*len(names))
	}

	for fi, name := range names {
		values := make([]float64, n)
		off := fi * n * 8
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[off+i*8:]))
		}
		out.Domain.Fields = append(out.Domain.Fields, types.Field{
			Name:        name,
			Association: types.AssociationVertex,
			Values:      values,
		})
	}

	return out, nil
}

func joinFloats(v [3]float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}

	return strings.Join(parts, ",")
}

func splitFloats(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("want 3 values, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return out, err
		}
		out[i] = f
	}

	return out, nil
}
