package source

import (
	"context"
	"fmt"

	"github.com/arloliu/insitu/types"
)

// blockFetcher returns the elements of one write-time block.
//
// The returned slice may alias engine storage and must not be modified.
type blockFetcher func(ctx context.Context, index int) ([]float64, error)

// readSelection fills dst with the box (start, count) of a variable by
// gathering the overlapping part of every block that intersects the box.
func readSelection(ctx context.Context, info types.VariableInfo, start, count []uint64, dst []float64, fetch blockFetcher) error {
	if len(start) != len(info.Shape) || len(count) != len(info.Shape) {
		return fmt.Errorf("selection rank %d/%d does not match variable %q rank %d",
			len(start), len(count), info.Name, len(info.Shape))
	}
	for d := range info.Shape {
		if start[d]+count[d] > info.Shape[d] {
			return fmt.Errorf("selection exceeds variable %q on dimension %d", info.Name, d)
		}
	}

	want := types.ElementCount(count)
	if uint64(len(dst)) != want {
		return fmt.Errorf("selection buffer has %d elements, want %d", len(dst), want)
	}
	if want == 0 {
		return nil
	}

	var covered uint64
	for i, b := range info.Blocks {
		if overlap(start, count, b.Start, b.Count) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		src, err := fetch(ctx, i)
		if err != nil {
			return err
		}
		if uint64(len(src)) != b.Elements() {
			return fmt.Errorf("block %d of %q has %d elements, want %d", i, info.Name, len(src), b.Elements())
		}
		covered += copyOverlap(dst, start, count, src, b.Start, b.Count)
	}

	if covered != want {
		return fmt.Errorf("selection of %q covered %d of %d elements", info.Name, covered, want)
	}

	return nil
}

// overlap returns the element count of the intersection of two boxes.
func overlap(aStart, aCount, bStart, bCount []uint64) uint64 {
	n := uint64(1)
	for d := range aStart {
		lo := max(aStart[d], bStart[d])
		hi := min(aStart[d]+aCount[d], bStart[d]+bCount[d])
		if lo >= hi {
			return 0
		}
		n *= hi - lo
	}

	return n
}

// copyOverlap copies the intersection of src (box srcStart/srcCount) into
// dst (box dstStart/dstCount). Both buffers are row-major. The innermost
// dimension is copied as one contiguous run.
//
// Returns the number of elements copied.
func copyOverlap(dst []float64, dstStart, dstCount []uint64, src []float64, srcStart, srcCount []uint64) uint64 {
	n := len(dstStart)
	if n == 0 {
		return 0
	}

	lo := make([]uint64, n)
	hi := make([]uint64, n)
	for d := range n {
		lo[d] = max(dstStart[d], srcStart[d])
		hi[d] = min(dstStart[d]+dstCount[d], srcStart[d]+srcCount[d])
		if lo[d] >= hi[d] {
			return 0
		}
	}

	dstStrides := strides(dstCount)
	srcStrides := strides(srcCount)

	var copied uint64
	var walk func(d int, dOff, sOff uint64)
	walk = func(d int, dOff, sOff uint64) {
		if d == n-1 {
			run := hi[d] - lo[d]
			ds := dOff + lo[d] - dstStart[d]
			ss := sOff + lo[d] - srcStart[d]
			copy(dst[ds:ds+run], src[ss:ss+run])
			copied += run

			return
		}
		for i := lo[d]; i < hi[d]; i++ {
			walk(d+1, dOff+(i-dstStart[d])*dstStrides[d], sOff+(i-srcStart[d])*srcStrides[d])
		}
	}
	walk(0, 0, 0)

	return copied
}

// strides returns row-major element strides for dims.
func strides(dims []uint64) []uint64 {
	s := make([]uint64, len(dims))
	acc := uint64(1)
	for d := len(dims) - 1; d >= 0; d-- {
		s[d] = acc
		acc *= dims[d]
	}

	return s
}
