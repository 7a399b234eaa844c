package board

// Perft counts the leaf nodes of the legal move tree of the given depth.
func Perft(p *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	Generate(p, GenLegal, &ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for _, em := range ml.Slice() {
		p.DoMove(em.Move)
		nodes += Perft(p, depth-1)
		p.UndoMove(em.Move)
	}
	return nodes
}

// Divide runs Perft below every root move and reports each subtotal through
// fn, in generation order. It returns the grand total.
func Divide(p *Position, depth int, fn func(m Move, nodes uint64)) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	Generate(p, GenLegal, &ml)

	var total uint64
	for _, em := range ml.Slice() {
		p.DoMove(em.Move)
		n := Perft(p, depth-1)
		p.UndoMove(em.Move)
		if fn != nil {
			fn(em.Move, n)
		}
		total += n
	}
	return total
}
