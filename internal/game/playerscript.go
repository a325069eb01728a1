package game

import (
	"fmt"

	"bulletforce_proxy/internal/protocol"
)

// PlayerScript is the fixed 21-slot positional record the game streams
// for every player body in SEND_SERIALIZE events.
type PlayerScript struct {
	// Pitch and Yaw are values between 0 and 3600 where 0 is straight
	// ahead.
	Pitch     int16
	Yaw       int16
	MoveAngle int16

	Kills  int16
	Deaths int16
	Rounds int16
	Ping   int16

	LastLocalHitY int16
	GunGameScore  int16

	VelocityX int16
	VelocityY int16
	VelocityZ int16

	// Health where 10000 means 100%.
	Health int16

	AccessoryType byte
	BarrelType    byte
	SightType     byte

	// The weapon of the person that last damaged this player.
	LastDamagerWeapon byte

	// Crouching, CanShoot, GunReloading, IsThrowing, IsGrounded, 0, 0, 0
	Bitflags byte

	// The id of the person that last damaged this player.
	LastDamagerID int32

	Position protocol.Vector3
	Rotation protocol.Quaternion
}

func slotShort(items []protocol.Value, i int) (int16, error) {
	if i >= len(items) || items[i].Kind != protocol.KindShort {
		return 0, fmt.Errorf("expected Short in player script slot %d", i)
	}
	return items[i].Short, nil
}

func slotByte(items []protocol.Value, i int) (byte, error) {
	if i >= len(items) || items[i].Kind != protocol.KindByte {
		return 0, fmt.Errorf("expected Byte in player script slot %d", i)
	}
	return items[i].Byte, nil
}

func slotInt(items []protocol.Value, i int) (int32, error) {
	if i >= len(items) || items[i].Kind != protocol.KindInteger {
		return 0, fmt.Errorf("expected Integer in player script slot %d", i)
	}
	return items[i].Int, nil
}

// PlayerScriptFromObjectArray parses the 21 positional slots of a
// player body stream. Any slot with the wrong kind fails the parse.
func PlayerScriptFromObjectArray(items []protocol.Value) (*PlayerScript, error) {
	var ps PlayerScript
	var err error

	shorts := []*int16{
		&ps.Pitch, &ps.Yaw, &ps.MoveAngle,
		&ps.Kills, &ps.Deaths, &ps.Rounds, &ps.Ping,
		&ps.LastLocalHitY, &ps.GunGameScore,
		&ps.VelocityX, &ps.VelocityY, &ps.VelocityZ,
		&ps.Health,
	}
	for i, dst := range shorts {
		if *dst, err = slotShort(items, i); err != nil {
			return nil, err
		}
	}

	bytes := []*byte{
		&ps.AccessoryType, &ps.BarrelType, &ps.SightType,
		&ps.LastDamagerWeapon, &ps.Bitflags,
	}
	for i, dst := range bytes {
		if *dst, err = slotByte(items, 13+i); err != nil {
			return nil, err
		}
	}

	if ps.LastDamagerID, err = slotInt(items, 18); err != nil {
		return nil, err
	}

	if len(items) <= 19 {
		return nil, fmt.Errorf("expected Vector3 in player script slot 19")
	}
	if ps.Position, err = protocol.Vector3FromValue(items[19]); err != nil {
		return nil, fmt.Errorf("expected Vector3 in player script slot 19: %w", err)
	}

	if len(items) <= 20 {
		return nil, fmt.Errorf("expected Quaternion in player script slot 20")
	}
	if ps.Rotation, err = protocol.QuaternionFromValue(items[20]); err != nil {
		return nil, fmt.Errorf("expected Quaternion in player script slot 20: %w", err)
	}

	return &ps, nil
}
