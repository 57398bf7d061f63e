package room

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomFull      = errors.New("room is full")
	ErrUsernameTaken = errors.New("username already taken in this room")
	ErrUnknownPlayer = errors.New("player not in room")
)
