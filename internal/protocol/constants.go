package protocol

// Operation codes, sent as the leading byte of operation requests and
// responses. Values come from Photon Realtime.
const (
	OpAuthenticateOnce byte = 231
	OpAuthenticate     byte = 230
	OpJoinLobby        byte = 229
	OpLeaveLobby       byte = 228
	OpCreateGame       byte = 227
	OpJoinGame         byte = 226
	OpJoinRandomGame   byte = 225
	OpFindFriends      byte = 222
	OpGetLobbyStats    byte = 221
	OpGetRegions       byte = 220
	OpWebRpc           byte = 219
	OpServerSettings   byte = 218
	OpGetGameList      byte = 217
	OpLeave            byte = 254
	OpRaiseEvent       byte = 253
	OpSetProperties    byte = 252
	OpGetProperties    byte = 251
	OpChangeGroups     byte = 248
)

// Event codes carried in EventData.Code.
const (
	EvJoin              byte = 255
	EvLeave             byte = 254
	EvPropertiesChanged byte = 253
	EvErrorInfo         byte = 251
	EvCacheSliceChanged byte = 250
	EvGameList          byte = 230
	EvGameListUpdate    byte = 229
	EvQueueState        byte = 228
	EvMatch             byte = 227
	EvAppStats          byte = 226
	EvLobbyStats        byte = 224
	EvAuthEvent         byte = 223
)

// PUN event codes. PUN layers its own event namespace on top of
// Photon's; these land in EventData.Code as well.
const (
	PunEvOwnershipUpdate       byte = 212
	PunEvVacantViewIds         byte = 211
	PunEvOwnershipTransfer     byte = 210
	PunEvOwnershipRequest      byte = 209
	PunEvDestroyPlayer         byte = 207
	PunEvSendSerializeReliable byte = 206
	PunEvRemoveCachedRpcs      byte = 205
	PunEvDestroy               byte = 204
	PunEvCloseConnection       byte = 203
	PunEvInstantiation         byte = 202
	PunEvSendSerialize         byte = 201
	PunEvRpc                   byte = 200
)

// Parameter codes, the 8-bit keys of envelope parameter maps.
const (
	ParamRoomName           byte = 255
	ParamActorNr            byte = 254
	ParamTargetActorNr      byte = 253
	ParamActorList          byte = 252
	ParamProperties         byte = 251
	ParamBroadcast          byte = 250
	ParamPlayerProperties   byte = 249
	ParamGameProperties     byte = 248
	ParamCache              byte = 247
	ParamReceiverGroup      byte = 246
	ParamCustomEventContent byte = 245
	// ParamData shares code 245 with ParamCustomEventContent; which name
	// applies depends on the operation.
	ParamData                byte = 245
	ParamCode                byte = 244
	ParamCleanupCacheOnLeave byte = 241
	ParamGroup               byte = 240
	ParamPublishUserID       byte = 239
	ParamAdd                 byte = 238
	ParamSuppressRoomEvents  byte = 237
	ParamEmptyRoomTTL        byte = 236
	ParamPlayerTTL           byte = 235
	ParamEventForward        byte = 234
	ParamIsInactive          byte = 233
	ParamCheckUserOnJoin     byte = 232
	ParamExpectedValues      byte = 231
	ParamAddress             byte = 230
	ParamPeerCount           byte = 229
	ParamGameCount           byte = 228
	ParamMasterPeerCount     byte = 227
	ParamUserID              byte = 225
	ParamApplicationID       byte = 224
	ParamMatchMakingType     byte = 223
	ParamGameList            byte = 222
	ParamToken               byte = 221
	ParamAppVersion          byte = 220
	ParamInfo                byte = 218
	ParamClientAuthType      byte = 217
	ParamClientAuthParams    byte = 216
	ParamJoinMode            byte = 215
	ParamClientAuthData      byte = 214
	ParamLobbyName           byte = 213
	ParamLobbyType           byte = 212
	ParamLobbyStats          byte = 211
	ParamRegion              byte = 210
	ParamURIPath             byte = 209
	ParamWebRpcParameters    byte = 208
	ParamWebRpcReturnCode    byte = 207
	ParamWebRpcReturnMessage byte = 206
	ParamCacheSliceIndex     byte = 205
	ParamPlugins             byte = 204
	ParamMasterClientID      byte = 203
	ParamNickName            byte = 202
	ParamPluginName          byte = 201
	ParamPluginVersion       byte = 200
	ParamCluster             byte = 196
	ParamExpectedProtocol    byte = 195
	ParamCustomInitData      byte = 194
	ParamEncryptionMode      byte = 193
	ParamEncryptionData      byte = 192
	ParamRoomOptionFlags     byte = 191
)

// Game property keys: well-known Byte keys of a room's property map.
const (
	GamePropMaxPlayers         byte = 255
	GamePropIsVisible          byte = 254
	GamePropIsOpen             byte = 253
	GamePropPlayerCount        byte = 252
	GamePropRemoved            byte = 251
	GamePropPropsListedInLobby byte = 250
	GamePropCleanupCacheOnLeave byte = 249
	GamePropMasterClientID     byte = 248
	GamePropExpectedUsers      byte = 247
	GamePropPlayerTTL          byte = 246
	GamePropEmptyRoomTTL       byte = 245
)

// Actor property keys: well-known Byte keys of a player's property map.
const (
	ActorPropPlayerName byte = 255
	ActorPropIsInactive byte = 254
	ActorPropUserID     byte = 253
)
