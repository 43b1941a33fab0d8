package vm

import "math"

// boolCell renders a predicate as the unboxed 1.0/0.0 NUMBER cell spec
// 4.8 requires for eq/lt/le/gt/ge/not.
func boolCell(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// compare mirrors the teacher's three-way numeric compare, kept generic
// over numeric32 even though this VM's cells are always float32, so a
// widening to integer cells later costs nothing here.
func compare[T numeric32](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

type numeric32 interface {
	int32 | uint32 | float32
}

func binaryArith(vm *VM, f func(a, b float32) float32) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	return vm.push(f(a, b))
}

func unaryArith(vm *VM, f func(a float32) float32) error {
	a, err := vm.pop()
	if err != nil {
		return err
	}
	return vm.push(f(a))
}

func opAdd(vm *VM) error { return binaryArith(vm, func(a, b float32) float32 { return a + b }) }
func opSub(vm *VM) error { return binaryArith(vm, func(a, b float32) float32 { return a - b }) }
func opMul(vm *VM) error { return binaryArith(vm, func(a, b float32) float32 { return a * b }) }
func opDiv(vm *VM) error { return binaryArith(vm, func(a, b float32) float32 { return a / b }) }
func opMod(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) })
}
func opMin(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return float32(math.Min(float64(a), float64(b))) })
}
func opMax(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return float32(math.Max(float64(a), float64(b))) })
}

func opEq(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return boolCell(compare(a, b) == 0) })
}
func opLt(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return boolCell(compare(a, b) < 0) })
}
func opLe(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return boolCell(compare(a, b) <= 0) })
}
func opGt(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return boolCell(compare(a, b) > 0) })
}
func opGe(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return boolCell(compare(a, b) >= 0) })
}

func opPow(vm *VM) error {
	return binaryArith(vm, func(a, b float32) float32 { return float32(math.Pow(float64(a), float64(b))) })
}

func opAbs(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 { return float32(math.Abs(float64(a))) })
}

func opNeg(vm *VM) error { return unaryArith(vm, func(a float32) float32 { return -a }) }

func opSign(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 {
		switch {
		case a > 0:
			return 1
		case a < 0:
			return -1
		default:
			return 0
		}
	})
}

func opRecip(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 {
		if a == 0 {
			return float32(math.Inf(1))
		}
		return 1 / a
	})
}

func opFloor(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 { return float32(math.Floor(float64(a))) })
}

func opNot(vm *VM) error { return unaryArith(vm, func(a float32) float32 { return boolCell(a == 0) }) }

func opExp(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 { return float32(math.Exp(float64(a))) })
}
func opLn(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 { return float32(math.Log(float64(a))) })
}
func opLog(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 { return float32(math.Log10(float64(a))) })
}
func opSqrt(vm *VM) error {
	return unaryArith(vm, func(a float32) float32 { return float32(math.Sqrt(float64(a))) })
}
