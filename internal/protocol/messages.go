package protocol

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Empty reports whether the stack is equivalent to an empty slot.
func (s ItemStack) Empty() bool {
	return s.Item == "" || s.Item == "AIR" || s.Count <= 0
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	BlockPalette  DigestRef `json:"block_palette"`
	ItemPalette   DigestRef `json:"item_palette"`
	RecipesDigest string    `json:"recipes_digest"`
	TuningDigest  string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// SIGNAL (client -> server): set a SWITCH at Pos on or off.
type SignalMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Pos             [3]int `json:"pos"`
	On              bool   `json:"on"`
}

// CRAFT (server -> client): one finished attempt, successful or not.
type CraftMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	AttemptID       string      `json:"attempt_id"`
	Anchor          [3]int      `json:"anchor"`
	Target          string      `json:"target,omitempty"`
	RecipeID        string      `json:"recipe_id,omitempty"`
	OK              bool        `json:"ok"`
	Code            string      `json:"code,omitempty"`
	Consumed        []ItemStack `json:"consumed,omitempty"`
	Produced        []ItemStack `json:"produced,omitempty"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}
