// Package level provides the static board configurations for the undersea
// race game and YAML-based overrides for custom boards.
package level

import "fmt"

// Config describes a single board layout. Cell positions are 1-based and run
// from the start cell (1) to the finish cell (BoardSize).
type Config struct {
	BoardSize int   `yaml:"board_size"`
	Cols      int   `yaml:"cols"`
	Rows      int   `yaml:"rows"`
	Hearts    []int `yaml:"hearts"`
	Snakes    []int `yaml:"snakes"`
}

// IsHeart reports whether pos is a heart (challenge) cell.
func (c Config) IsHeart(pos int) bool {
	return contains(c.Hearts, pos)
}

// IsSnake reports whether pos is a snake (setback) cell.
func (c Config) IsSnake(pos int) bool {
	return contains(c.Snakes, pos)
}

func contains(positions []int, pos int) bool {
	for _, p := range positions {
		if p == pos {
			return true
		}
	}
	return false
}

// Validate checks the board invariants: all heart and snake positions lie in
// [1, BoardSize], the two sets are disjoint, and the grid dimensions cover the
// board exactly.
func (c Config) Validate() error {
	if c.BoardSize < 2 {
		return fmt.Errorf("level: board size must be at least 2, got %d", c.BoardSize)
	}
	if c.Cols*c.Rows != c.BoardSize {
		return fmt.Errorf("level: grid %dx%d does not cover board of %d cells", c.Cols, c.Rows, c.BoardSize)
	}
	for _, p := range c.Hearts {
		if p < 1 || p > c.BoardSize {
			return fmt.Errorf("level: heart position %d outside [1, %d]", p, c.BoardSize)
		}
	}
	for _, p := range c.Snakes {
		if p < 1 || p > c.BoardSize {
			return fmt.Errorf("level: snake position %d outside [1, %d]", p, c.BoardSize)
		}
		if contains(c.Hearts, p) {
			return fmt.Errorf("level: position %d is both heart and snake", p)
		}
	}
	return nil
}

// Set is an immutable collection of boards keyed by level number, starting
// at 1 with no gaps.
type Set struct {
	levels map[int]Config
}

// Get returns the board for the given level number.
func (s Set) Get(n int) (Config, bool) {
	cfg, ok := s.levels[n]
	return cfg, ok
}

// Max returns the highest level number in the set.
func (s Set) Max() int {
	return len(s.levels)
}

// NewSet builds a validated Set from a level-number keyed map.
func NewSet(levels map[int]Config) (Set, error) {
	if len(levels) == 0 {
		return Set{}, fmt.Errorf("level: empty level set")
	}
	for n := 1; n <= len(levels); n++ {
		cfg, ok := levels[n]
		if !ok {
			return Set{}, fmt.Errorf("level: level numbers must be contiguous from 1, missing %d", n)
		}
		if err := cfg.Validate(); err != nil {
			return Set{}, fmt.Errorf("level %d: %w", n, err)
		}
	}
	return Set{levels: levels}, nil
}

// Builtin returns the three stock boards.
func Builtin() Set {
	set, err := NewSet(map[int]Config{
		1: {
			BoardSize: 45,
			Cols:      9,
			Rows:      5,
			Hearts:    []int{1, 5, 12, 19, 26, 33, 38, 40},
			Snakes:    []int{8, 13, 24, 31, 41},
		},
		2: {
			BoardSize: 50,
			Cols:      10,
			Rows:      5,
			Hearts:    []int{4, 9, 15, 22, 30, 38, 46},
			Snakes:    []int{11, 18, 27, 35, 44},
		},
		3: {
			BoardSize: 60,
			Cols:      10,
			Rows:      6,
			Hearts:    []int{3, 7, 13, 20, 28, 36, 41, 48, 55},
			Snakes:    []int{10, 17, 26, 34, 43, 52},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("level: builtin boards invalid: %v", err))
	}
	return set
}
