package coordinator

import (
	"context"
	"fmt"

	"github.com/mcdev12/connectfour/go/internal/game/events"
	"github.com/mcdev12/connectfour/go/internal/relay"
)

// RequestMove attempts a move for this peer. Out-of-turn requests are
// dropped silently. The host applies the move itself; a guest checks the
// column against its local engine and forwards it to the host.
func (c *Coordinator) RequestMove(ctx context.Context, column int) error {
	c.mu.Lock()

	if !c.isMyTurnLocked(ctx) {
		c.mu.Unlock()
		c.logger.Debug().Int("column", column).Msg("ignoring move request, not this peer's turn")
		return nil
	}

	if c.relay.IsHost() {
		err := c.applyAuthoritativeLocked(ctx, column)
		c.mu.Unlock()
		return err
	}

	if err := c.game.ValidateMove(column); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.logger.Debug().Int("column", column).Msg("forwarding move to host")
	c.broadcast(ctx, events.MoveMade, events.MoveMadePayload{Column: column}, relay.ModeHost)
	return nil
}

// applyAuthoritativeLocked is the only path that mutates MOVES_MADE: apply to
// the host engine, persist the log, broadcast the result.
func (c *Coordinator) applyAuthoritativeLocked(ctx context.Context, column int) error {
	player := c.game.CurrentTurn()
	coord, err := c.game.ApplyMove(column)
	if err != nil {
		return err
	}
	moveNumber := c.game.MoveCount()

	stored, err := c.store.moves(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read move log")
	} else if len(stored) != moveNumber-1 {
		c.logger.Warn().
			Int("local_moves", moveNumber-1).
			Int("session_moves", len(stored)).
			Msg("session move log out of step with host engine, rewriting")
	}

	if err := c.store.setMoves(ctx, c.game.MoveHistory()); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist move log")
	}

	c.logger.Info().
		Int("column", column).
		Int("row", coord.Row).
		Str("player", player.String()).
		Int("move_number", moveNumber).
		Bool("terminal", c.game.IsTerminal()).
		Msg("move applied")

	c.broadcast(ctx, events.GamePieceAdded, events.GamePieceAddedPayload{
		Coordinate: coord,
		Player:     player,
		Column:     column,
		MoveNumber: moveNumber,
	}, relay.ModeAll)
	return nil
}

// handleMoveMade runs on the host for moves forwarded by a guest
func (c *Coordinator) handleMoveMade(ctx context.Context, msg relay.Message) {
	if !c.relay.IsHost() {
		c.logger.Debug().Str("from", string(msg.From)).Msg("ignoring MOVE_MADE on non-host")
		return
	}

	var payload events.MoveMadePayload
	if err := decode(msg, &payload); err != nil {
		c.logger.Error().Err(err).Msg("dropping malformed MOVE_MADE")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying || c.game.IsTerminal() {
		c.logger.Warn().Str("from", string(msg.From)).Msg("dropping move, game not in progress")
		return
	}

	slot, err := c.slotOf(ctx, msg.From)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read player slots")
		return
	}
	if slot == 0 || slot != c.game.CurrentTurn() {
		c.logger.Warn().
			Str("from", string(msg.From)).
			Str("slot", slot.String()).
			Str("turn", c.game.CurrentTurn().String()).
			Msg("dropping move from peer not holding the turn")
		return
	}

	if err := c.applyAuthoritativeLocked(ctx, payload.Column); err != nil {
		c.logger.Warn().Err(err).Int("column", payload.Column).Msg("rejected forwarded move")
	}
}

// handleGamePieceAdded mirrors a host broadcast. The host already applied the
// move, so for its own broadcast it only notifies observers.
func (c *Coordinator) handleGamePieceAdded(ctx context.Context, msg relay.Message) {
	var payload events.GamePieceAddedPayload
	if err := decode(msg, &payload); err != nil {
		c.logger.Error().Err(err).Msg("dropping malformed GAME_PIECE_ADDED")
		return
	}

	if msg.From == c.relay.Self() {
		c.emitter.emit(events.PieceAdded(payload.Coordinate, payload.Player))
		return
	}

	c.mu.Lock()
	evts := c.mirrorMoveLocked(ctx, payload)
	c.mu.Unlock()

	c.emitter.emit(evts...)
}

func (c *Coordinator) mirrorMoveLocked(ctx context.Context, payload events.GamePieceAddedPayload) []events.Event {
	local := c.game.MoveCount()

	if payload.MoveNumber != 0 && payload.MoveNumber <= local {
		c.logger.Debug().
			Int("move_number", payload.MoveNumber).
			Int("local_moves", local).
			Msg("ignoring stale GAME_PIECE_ADDED")
		return nil
	}

	if payload.MoveNumber > local+1 {
		reason := fmt.Sprintf("missed %d move(s) before move %d", payload.MoveNumber-local-1, payload.MoveNumber)
		return c.desyncLocked(ctx, local, payload.MoveNumber, reason)
	}

	player := c.game.CurrentTurn()
	coord, err := c.game.ApplyMove(payload.Column)
	if err != nil {
		return c.desyncLocked(ctx, local, local+1, err.Error())
	}
	if coord != payload.Coordinate || player != payload.Player {
		reason := fmt.Sprintf("move %d landed at %d,%d for %s, host reported %d,%d for %s",
			local+1, coord.Row, coord.Col, player, payload.Coordinate.Row, payload.Coordinate.Col, payload.Player)
		return c.desyncLocked(ctx, local+1, local+1, reason)
	}

	return []events.Event{events.PieceAdded(coord, player)}
}

// desyncLocked reports a diverged engine and rebuilds it from the session's
// move log
func (c *Coordinator) desyncLocked(ctx context.Context, local, remote int, reason string) []events.Event {
	c.logger.Error().
		Int("local_moves", local).
		Int("remote_moves", remote).
		Str("reason", reason).
		Msg("local game diverged from host")

	evts := []events.Event{events.DesyncDetected(local, remote, reason)}

	evt, err := c.resyncLocked(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to resync from move log")
		return evts
	}
	return append(evts, evt)
}
