package board

// IsDraw reports a draw by insufficient material, the fifty-move rule or
// repetition. A single repetition inside the reachable history counts, which
// is what a search wants; three-fold repetition of a game position is
// therefore always reported as well.
func (p *Position) IsDraw() bool {
	if p.byType[Pawn] == 0 && p.st.NonPawnMaterial[White]+p.st.NonPawnMaterial[Black] <= BishopValueMg {
		return true
	}

	// Fifty moves, unless the last move delivered mate.
	if p.st.Rule50 > 99 && (!p.InCheck() || p.HasLegalMoves()) {
		return true
	}

	// Only positions since the last irreversible move or null move can
	// repeat, and only those with the same side to move.
	e := min(p.st.Rule50, p.st.PliesFromNull, p.sp)
	for i := 4; i <= e; i += 2 {
		if p.states[p.sp-i].Key == p.st.Key {
			return true
		}
	}
	return false
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	Generate(p, GenLegal, &ml)
	return ml.Len() > 0
}

// IsCheckmate reports whether the side to move is mated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move has no legal move but is not
// in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}
