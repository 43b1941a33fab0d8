package vm

// findElement starting at depthCells cells below the current top of
// the data stack, reports the depth of the next element further down
// and the cell span of the element found at depthCells. A plain cell
// has span 1; a LIST header (which, per 3.6, always sits at the *top*
// of its own span) has span 1+payloadSlots.
func (vm *VM) findElement(depthCells uint32) (nextDepth uint32, size uint32, err error) {
	v, err := vm.peekDepth(depthCells)
	if err != nil {
		return 0, 0, err
	}
	tv := FromTagged(v)
	if tv.Tag == TagList {
		size = 1 + uint32(tv.Value)
	} else {
		size = 1
	}
	return depthCells + size, size, nil
}

// reverseRange reverses the cells occupying the byte range [lo, hi).
func (vm *VM) reverseRange(lo, hi uint32) error {
	n := (hi - lo) / cellSize
	for i := uint32(0); i < n/2; i++ {
		a := lo + i*cellSize
		b := hi - (i+1)*cellSize
		va, err := vm.cellAt(a)
		if err != nil {
			return err
		}
		vb, err := vm.cellAt(b)
		if err != nil {
			return err
		}
		if err := vm.setCellAt(a, vb); err != nil {
			return err
		}
		if err := vm.setCellAt(b, va); err != nil {
			return err
		}
	}
	return nil
}

// rotateLeftBlock moves the block [lo, mid) to the far end of [lo, hi)
// using the canonical three-reversal algorithm (spec 4.7).
func (vm *VM) rotateLeftBlock(lo, mid, hi uint32) error {
	if err := vm.reverseRange(lo, mid); err != nil {
		return err
	}
	if err := vm.reverseRange(mid, hi); err != nil {
		return err
	}
	return vm.reverseRange(lo, hi)
}

// rotateRightBlock moves the block [mid, hi) to the front of [lo, hi).
func (vm *VM) rotateRightBlock(lo, mid, hi uint32) error {
	if err := vm.reverseRange(mid, hi); err != nil {
		return err
	}
	if err := vm.reverseRange(lo, mid); err != nil {
		return err
	}
	return vm.reverseRange(lo, hi)
}

// copySpanToTop duplicates the size-cell span starting depthCells
// below the top, pushing a fresh copy on top.
func (vm *VM) copySpanToTop(depthCells, size uint32) error {
	base := int64(vm.SP) - int64(depthCells+size)*cellSize
	if base < 0 {
		return newStackError(KindStackUnderflow, vm.stackSnapshot(), "stack underflow")
	}
	for i := uint32(0); i < size; i++ {
		v, err := vm.cellAt(uint32(base) + i*cellSize)
		if err != nil {
			return err
		}
		if err := vm.push(v); err != nil {
			return err
		}
	}
	return nil
}

// popSpanCells removes the top `size` cells and returns them in
// ascending-address (bottom-to-top) order.
func (vm *VM) popSpanCells(size uint32) ([]float32, error) {
	if vm.SP < size*cellSize {
		return nil, newStackError(KindStackUnderflow, vm.stackSnapshot(), "stack underflow")
	}
	base := vm.SP - size*cellSize
	cells := make([]float32, size)
	for i := uint32(0); i < size; i++ {
		v, err := vm.cellAt(base + i*cellSize)
		if err != nil {
			return nil, err
		}
		cells[i] = v
	}
	vm.SP = base
	return cells, nil
}

func (vm *VM) pushSpanCells(cells []float32) error {
	for _, v := range cells {
		if err := vm.push(v); err != nil {
			return err
		}
	}
	return nil
}

// --- stack shuffling, list-aware (spec 4.7) ---

func opDup(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	return vm.copySpanToTop(0, size)
}

func opDrop(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	if vm.SP < size*cellSize {
		return newStackError(KindStackUnderflow, vm.stackSnapshot(), "stack underflow")
	}
	vm.SP -= size * cellSize
	return nil
}

func (vm *VM) twoElementBounds() (lo, mid, hi uint32, err error) {
	midDepth, sizeB, err := vm.findElement(0)
	if err != nil {
		return 0, 0, 0, err
	}
	_, sizeA, err := vm.findElement(midDepth)
	if err != nil {
		return 0, 0, 0, err
	}
	hi = vm.SP
	lo = hi - (sizeA+sizeB)*cellSize
	mid = lo + sizeA*cellSize
	return lo, mid, hi, nil
}

func opSwap(vm *VM) error {
	lo, mid, hi, err := vm.twoElementBounds()
	if err != nil {
		return err
	}
	return vm.rotateLeftBlock(lo, mid, hi)
}

func opOver(vm *VM) error {
	depthB, _, err := vm.findElement(0)
	if err != nil {
		return err
	}
	_, sizeA, err := vm.findElement(depthB)
	if err != nil {
		return err
	}
	return vm.copySpanToTop(depthB, sizeA)
}

func opNip(vm *VM) error {
	if err := opSwap(vm); err != nil {
		return err
	}
	return opDrop(vm)
}

func opTuck(vm *VM) error {
	if err := opSwap(vm); err != nil {
		return err
	}
	return opOver(vm)
}

// rot: a b c -> b c a. Moving the bottom element (a) to the top is a
// left-rotate of the whole three-element span by size(a).
func opRot(vm *VM) error {
	depthB, _, err := vm.findElement(0)
	if err != nil {
		return err
	}
	depthA, _, err := vm.findElement(depthB)
	if err != nil {
		return err
	}
	depthEnd, sizeA, err := vm.findElement(depthA)
	if err != nil {
		return err
	}
	hi := vm.SP
	lo := hi - depthEnd*cellSize
	mid := lo + sizeA*cellSize
	return vm.rotateLeftBlock(lo, mid, hi)
}

// revrot: a b c -> c a b. Moving the top element (c) to the bottom is
// a right-rotate of the whole three-element span by size(c).
func opRevRot(vm *VM) error {
	depthB, sizeC, err := vm.findElement(0)
	if err != nil {
		return err
	}
	depthA, _, err := vm.findElement(depthB)
	if err != nil {
		return err
	}
	depthEnd, _, err := vm.findElement(depthA)
	if err != nil {
		return err
	}
	hi := vm.SP
	lo := hi - depthEnd*cellSize
	mid := hi - sizeC*cellSize
	return vm.rotateRightBlock(lo, mid, hi)
}

func opPick(vm *VM) error {
	kv, err := vm.pop()
	if err != nil {
		return err
	}
	k := int(FromTagged(kv).asNumber())
	if k < 0 {
		return newError(KindSyntax, "pick: negative index")
	}
	depth := uint32(0)
	var size uint32
	for i := 0; ; i++ {
		next, sz, err := vm.findElement(depth)
		if err != nil {
			return newStackError(KindStackUnderflow, vm.stackSnapshot(), "pick: insufficient depth")
		}
		if i == k {
			size = sz
			break
		}
		depth = next
	}
	return vm.copySpanToTop(depth, size)
}

// --- structural list operations (spec 4.7) ---

func makeList(elements [][]float32) []float32 {
	var payload []float32
	for _, e := range elements {
		payload = append(payload, e...)
	}
	return append(payload, ToTagged(TagList, uint16(len(payload))))
}

// listElements splits a list's raw cell span (payload followed by its
// own header) into its logical elements, head first. It works by
// scanning from the header end backward, since a nested list's header
// — unlike its payload — unambiguously announces that element's size.
func listElements(list []float32) [][]float32 {
	payload := list[:len(list)-1]
	var reversed [][]float32
	idx := len(payload) - 1
	for idx >= 0 {
		tv := FromTagged(payload[idx])
		if tv.Tag == TagList {
			n := int(tv.Value)
			start := idx - n
			reversed = append(reversed, payload[start:idx+1])
			idx = start - 1
		} else {
			reversed = append(reversed, payload[idx:idx+1])
			idx--
		}
	}
	elems := make([][]float32, len(reversed))
	for i, e := range reversed {
		elems[len(reversed)-1-i] = e
	}
	return elems
}

func opLength(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	return vm.push(ToTagged(TagInteger, uint16(len(listElements(chunk)))))
}

func opSlots(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	return vm.push(ToTagged(TagInteger, uint16(len(chunk)-1)))
}

func opHead(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	elems := listElements(chunk)
	if len(elems) == 0 {
		return vm.push(NilValue())
	}
	return vm.pushSpanCells(elems[0])
}

func opTail(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	elems := listElements(chunk)
	var rest [][]float32
	if len(elems) > 0 {
		rest = elems[1:]
	}
	return vm.pushSpanCells(makeList(rest))
}

func opCons(vm *VM) error {
	_, xSize, err := vm.findElement(0)
	if err != nil {
		return err
	}
	xChunk, err := vm.popSpanCells(xSize)
	if err != nil {
		return err
	}
	_, lSize, err := vm.findElement(0)
	if err != nil {
		return err
	}
	listChunk, err := vm.popSpanCells(lSize)
	if err != nil {
		return err
	}
	elems := append([][]float32{xChunk}, listElements(listChunk)...)
	return vm.pushSpanCells(makeList(elems))
}

func opUncons(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	elems := listElements(chunk)
	var head []float32
	var rest [][]float32
	if len(elems) > 0 {
		head = elems[0]
		rest = elems[1:]
	} else {
		head = []float32{NilValue()}
	}
	if err := vm.pushSpanCells(makeList(rest)); err != nil {
		return err
	}
	return vm.pushSpanCells(head)
}

func opConcat(vm *VM) error {
	_, size2, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk2, err := vm.popSpanCells(size2)
	if err != nil {
		return err
	}
	_, size1, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk1, err := vm.popSpanCells(size1)
	if err != nil {
		return err
	}
	payload1 := chunk1[:len(chunk1)-1]
	payload2 := chunk2[:len(chunk2)-1]
	merged := append(append([]float32{}, payload1...), payload2...)
	result := append(merged, ToTagged(TagList, uint16(len(merged))))
	return vm.pushSpanCells(result)
}

func opReverse(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	elems := listElements(chunk)
	for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
		elems[i], elems[j] = elems[j], elems[i]
	}
	return vm.pushSpanCells(makeList(elems))
}

func opPack(vm *VM) error {
	nv, err := vm.pop()
	if err != nil {
		return err
	}
	n := int(FromTagged(nv).asNumber())
	if n < 0 {
		return newError(KindSyntax, "pack: negative count")
	}
	depth := uint32(0)
	for i := 0; i < n; i++ {
		next, _, err := vm.findElement(depth)
		if err != nil {
			return newStackError(KindStackUnderflow, vm.stackSnapshot(), "pack: insufficient depth")
		}
		depth = next
	}
	chunk, err := vm.popSpanCells(depth)
	if err != nil {
		return err
	}
	result := append(append([]float32{}, chunk...), ToTagged(TagList, uint16(len(chunk))))
	return vm.pushSpanCells(result)
}

func opUnpack(vm *VM) error {
	_, size, err := vm.findElement(0)
	if err != nil {
		return err
	}
	chunk, err := vm.popSpanCells(size)
	if err != nil {
		return err
	}
	return vm.pushSpanCells(chunk[:len(chunk)-1])
}

// --- list literal grouping, `{` / `}` (groupLeft / groupRight) ---

func opOpenList(vm *VM) error {
	placeholder := vm.SP
	if err := vm.push(ToTagged(TagList, 0)); err != nil {
		return err
	}
	return vm.rpushRaw(placeholder)
}

func opCloseList(vm *VM) error {
	placeholder, err := vm.rpopRaw()
	if err != nil {
		return err
	}
	if placeholder > vm.SP {
		return newError(KindRange, "mismatched list close")
	}
	n := (vm.SP-placeholder)/cellSize - 1
	mid := placeholder + cellSize
	if err := vm.rotateLeftBlock(placeholder, mid, vm.SP); err != nil {
		return err
	}
	return vm.setCellAt(vm.SP-cellSize, ToTagged(TagList, uint16(n)))
}

