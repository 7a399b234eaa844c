package board

// SEEWin is what SEESign returns when a capture cannot lose material.
const SEEWin = 10000

// SEESign returns SEE(m) unless the captured piece is worth at least the
// capturer, in which case the exchange can only gain and SEEWin is returned
// without computing it. King moves always take the shortcut since kings have
// no material value.
func (p *Position) SEESign(m Move) int {
	if p.MovedPiece(m).ValueMg() <= p.board[m.To()].ValueMg() {
		return SEEWin
	}
	return p.SEE(m)
}

// SEE returns the material balance of the exchange sequence m starts on its
// destination square, assuming both sides always recapture with their least
// valuable attacker and may stop whenever continuing would lose.
func (p *Position) SEE(m Move) int {
	if m.Type() == Castling {
		return 0
	}

	from, to := m.From(), m.To()
	var swapList [32]int
	swapList[0] = p.board[to].ValueMg()
	stm := p.board[from].Color()
	occupied := p.Occupied() ^ SquareBB(from)

	if m.Type() == EnPassant {
		occupied ^= SquareBB(Square(int(to) - PawnPush(stm)))
		swapList[0] = PieceValue[MG][Pawn]
	}

	// Attackers with the mover removed; a slider behind it is included.
	attackers := p.AttackersTo(to, occupied) & occupied

	stm = stm.Other()
	stmAttackers := attackers & p.byColor[stm]
	if stmAttackers == 0 {
		return swapList[0]
	}

	captured := p.board[from].Type()
	slIndex := 1
	for {
		swapList[slIndex] = -swapList[slIndex-1] + PieceValue[MG][captured]

		captured = p.minAttacker(to, stmAttackers, &occupied, &attackers)

		// A king can only capture last; if the other side still has an
		// attacker the king capture is illegal and is not counted.
		if captured == King {
			if stmAttackers == attackers {
				slIndex++
			}
			break
		}

		stm = stm.Other()
		stmAttackers = attackers & p.byColor[stm]
		slIndex++
		if stmAttackers == 0 {
			break
		}
	}

	for slIndex--; slIndex > 0; slIndex-- {
		swapList[slIndex-1] = min(-swapList[slIndex], swapList[slIndex-1])
	}
	return swapList[0]
}

// minAttacker removes the least valuable of stmAttackers from occupied and
// adds any slider it was hiding to attackers.
func (p *Position) minAttacker(to Square, stmAttackers Bitboard, occupied, attackers *Bitboard) PieceType {
	for pt := Pawn; pt < King; pt++ {
		b := stmAttackers & p.byType[pt]
		if b == 0 {
			continue
		}
		*occupied ^= b & -b
		if pt == Pawn || pt == Bishop || pt == Queen {
			*attackers |= BishopAttacks(to, *occupied) & (p.byType[Bishop] | p.byType[Queen])
		}
		if pt == Rook || pt == Queen {
			*attackers |= RookAttacks(to, *occupied) & (p.byType[Rook] | p.byType[Queen])
		}
		*attackers &= *occupied
		return pt
	}
	return King
}
