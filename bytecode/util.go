package bytecode

func copyInstructions(src []Instruction) []Instruction {
	if src == nil {
		return nil
	}
	dst := make([]Instruction, len(src))
	copy(dst, src)
	return dst
}

func copyEdges(src []Edge) []Edge {
	if src == nil {
		return nil
	}
	dst := make([]Edge, len(src))
	copy(dst, src)
	return dst
}

func copyCatchEdges(src []CatchEdge) []CatchEdge {
	if src == nil {
		return nil
	}
	dst := make([]CatchEdge, len(src))
	copy(dst, src)
	return dst
}
