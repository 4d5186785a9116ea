package room

import "errors"

var ErrRoomFull = errors.New("room is full")
var ErrBadPassword = errors.New("wrong password")
var ErrRoomClosed = errors.New("room is closed")
