package tokenizer

import "errors"

// ErrSpecialTokenMismatch is returned when a loaded vocabulary archive
// assigns a different ID than the fixed contract (spec §6.2) to a special
// token the engine indexes directly.
var ErrSpecialTokenMismatch = errors.New("tokenizer: special token id disagrees with fixed contract")
