package state

import "github.com/google/uuid"

var newUUID = uuid.New
