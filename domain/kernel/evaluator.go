package kernel

// Evaluate runs program against one trial's sampled inputs and returns the
// value on top of the stack after the last instruction.
//
// The stack is a fixed array local to the call, so evaluation never
// allocates. Preconditions: program came from NewModelProgram and
// len(inputs) >= program.InputCount(). Division by zero is not trapped; it
// produces ±Inf or NaN, which propagates through later arithmetic.
func Evaluate(program *ModelProgram, inputs []float64) float64 {
	var stack [MaxStack]float64
	top := 0

	for i := 0; i < program.n; i++ {
		ins := &program.ops[i]
		switch ins.Op {
		case OpPushConst:
			stack[top] = float64(ins.Literal)
			top++
		case OpPushInput:
			stack[top] = inputs[ins.Index]
			top++
		case OpAdd, OpSub, OpMul, OpDiv:
			top--
			b := stack[top]
			a := stack[top-1]
			switch ins.Op {
			case OpAdd:
				stack[top-1] = a + b
			case OpSub:
				stack[top-1] = a - b
			case OpMul:
				stack[top-1] = a * b
			case OpDiv:
				stack[top-1] = a / b
			}
		}
	}

	// zero-value program
	if top == 0 {
		return 0
	}
	return stack[top-1]
}
