package chat

import "errors"

var ErrEmptyName = errors.New("conversation name cannot be empty")
