package freefire

// ValidServers are the game server regions the upstream API accepts.
var ValidServers = []string{
	"IND",
	"BD",
	"PK",
	"SG",
	"NA",
	"BR",
	"SAC",
	"EU",
	"ME",
	"TH",
	"VN",
	"ID",
	"TW",
	"RU",
}

func IsValidServer(server string) bool {
	for _, s := range ValidServers {
		if s == server {
			return true
		}
	}
	return false
}
