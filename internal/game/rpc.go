// Package game holds Bullet Force specific knowledge layered on the
// generic Photon protocol: the RPC method index table, the player
// serialization stream, and the tracked proxy state.
package game

import (
	"fmt"

	"bulletforce_proxy/internal/protocol"
)

// RPCMethodNames is the game's fixed RPC method table, indexed by the
// compact rpc_index byte sent on the wire.
var RPCMethodNames = [80]string{
	"AcknowledgeDamageDoneRPC",
	"AnotherRPCMethod",
	"BecomeNewMasterClient",
	"ChangeCrouchState",
	"Chat",
	"CmdGetTeamNumber",
	"ColorRpc",
	"DestroyRpc",
	"DisplayVoteData",
	"DoJump",
	"FetchCheaters",
	"FetchVoteData",
	"FlagOwnerTeamUpdated",
	"FlagTakenValueUpdated",
	"Flash",
	"GetBestSpawnPointForPlayer",
	"GotKillAssist",
	"HealthUpdated",
	"InstantiateRpc",
	"JSNow",
	"KickPlayer",
	"LatencyReceive",
	"LatencySend",
	"localCreateGrenade",
	"localHurt",
	"localReload",
	"localSpawnThrowingWeapon",
	"MapVotedFor",
	"Marco",
	"MatchOverChanged",
	"mpMeleeAnimation",
	"mpThrowGrenadeAnimation",
	"MyRPCMethod",
	"NukeKill",
	"PickupItemInit",
	"PlayerHitPlayer",
	"PlayerKickedForPing",
	"Polo",
	"PunPickup",
	"PunPickupSimple",
	"PunRespawn",
	"ReliabilityMessageReceived",
	"ReliabilityMessageSent",
	"RequestForPickupItems",
	"RequestForPickupTimes",
	"RequestVipsOnMasterFromSubordinate",
	"RestartHardcoreModeRound",
	"RestartMatch",
	"RpcDie",
	"RPCElevatorButtonPressed",
	"RpcSendChatMessage",
	"RpcShoot",
	"RpcShowHitmarker",
	"RpcShowPerkMessage",
	"SetElevatorsClosed",
	"SetMaps",
	"SetNextMap",
	"SetPing",
	"SetRank",
	"SetSpawnPoint",
	"SetTimeScale",
	"ShowAnnouncement",
	"ShowDebugCapsule",
	"SpawnFailed",
	"TaggedPlayer",
	"TeleportToPosition",
	"UpdateAlivePlayers",
	"UpdateHMFFARounds",
	"UpdateMPDeaths",
	"UpdateMPKills",
	"UpdateMPRounds",
	"UpdateTeamNumber",
	"UpdateTeamPoints",
	"UpdateTimeInMatch",
	"UpdateVIPsOnSubordinates",
	"UsernameChanged",
	"WeaponCamoChanged",
	"WeaponTypeChanged",
	"RpcACKill",
	"RpcForceKillstreak",
}

// RPCMethodName resolves the method name of a call: the explicit
// method-name string when present, otherwise the rpc_index looked up in
// RPCMethodNames. A call carrying neither is malformed; an out-of-range
// index is an error.
func RPCMethodName(call *protocol.RpcCall) (string, error) {
	if call.MethodName != nil {
		return *call.MethodName, nil
	}
	if call.RpcIndex != nil {
		idx := int(*call.RpcIndex)
		if idx >= len(RPCMethodNames) {
			return "", fmt.Errorf("rpc index %d is out of range (table has %d methods)", idx, len(RPCMethodNames))
		}
		return RPCMethodNames[idx], nil
	}
	return "", fmt.Errorf("malformed rpc call, neither method name nor index is present")
}
