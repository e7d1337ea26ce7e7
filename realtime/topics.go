package realtime

import (
	"fmt"
	"strings"
)

// Topic — имя топика вместе с уровнем доставки для него.
//
// Семейства топиков:
//
//	matches/<city>              — региональная лента новых матчей, QoS 1
//	match/<id>/updates          — события лобби (joined/started/canceled), QoS 1
//	match/<id>/live_updates     — события по ходу игры (счёт), QoS 2
//
// Live-лента использует более строгую гарантию: обновления счёта редкие и
// ценные, потеря заметна клиенту сразу.
type Topic struct {
	Name string
	QoS  byte
}

// NormalizeCity приводит город к виду, используемому в имени топика:
// нижний регистр, пробелы заменяются дефисами. Это проводной контракт,
// клиенты нормализуют город тем же правилом.
func NormalizeCity(city string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(city)), " ", "-")
}

func RegionTopic(city string) Topic {
	return Topic{Name: "matches/" + NormalizeCity(city), QoS: 1}
}

func MatchLobbyTopic(matchID int) Topic {
	return Topic{Name: fmt.Sprintf("match/%d/updates", matchID), QoS: 1}
}

func MatchLiveTopic(matchID int) Topic {
	return Topic{Name: fmt.Sprintf("match/%d/live_updates", matchID), QoS: 2}
}
