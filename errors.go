package tileconn

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/internal/region"
	"github.com/hupe1980/tileconn/tilestore"
)

var (
	// ErrInvalidArgument is returned for malformed query or build arguments,
	// such as an unknown level or a negative radius.
	ErrInvalidArgument = errors.New("tileconn: invalid argument")

	// ErrNotBuilt is returned when a level the hierarchy defines has no
	// coloring yet.
	ErrNotBuilt = errors.New("tileconn: level not built")
)

// LevelError attaches a hierarchy level to an error.
//
// The underlying error can be accessed via errors.Unwrap.
type LevelError struct {
	Level uint8
	cause error
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("tileconn: level %d: %v", e.Level, e.cause)
}

func (e *LevelError) Unwrap() error { return e.cause }

// TileRangeError indicates a tile index outside its level's grid.
// It matches ErrInvalidArgument.
type TileRangeError struct {
	Tile  graphid.TileID
	Tiles int
}

func (e *TileRangeError) Error() string {
	return fmt.Sprintf("tileconn: tile %s outside level with %d tiles", e.Tile, e.Tiles)
}

func (e *TileRangeError) Unwrap() error { return ErrInvalidArgument }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, region.ErrUnknownLevel) || errors.Is(err, tilestore.ErrUnknownLevel) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if errors.Is(err, tilestore.ErrOutOfRange) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
