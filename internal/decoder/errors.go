package decoder

import "errors"

// ErrNoInputProvided is returned by Forward when neither inputsEmbeds nor
// inputIDs is given (spec §4.4: "Inputs: exactly one of inputs_embeds or
// input_ids; if neither, fail with NoInputProvided").
var ErrNoInputProvided = errors.New("decoder: neither inputs_embeds nor input_ids provided")
