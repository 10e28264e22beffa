package model

// API status

var AppVersion = &Kind{
	Name: "AppVersion",
	Alias: map[string]string{
		"min":     "min_app_version",
		"minimum": "min_app_version",
		"max":     "latest_app_version",
		"maximum": "latest_app_version",
		"latest":  "latest_app_version",
	},
}

var Status = &Kind{
	Name: "Status",
	Alias: map[string]string{
		"season": "current_season",
		"down":   "is_datafeed_down",
	},
	Transforms: map[string]Transform{
		"ios":     Nested(AppVersion),
		"android": Nested(AppVersion),
	},
	Int: keyInt("current_season"),
}

// Teams

var teamAlias = map[string]string{
	"nick":      "nickname",
	"number":    "team_number",
	"state":     "state_prov",
	"province":  "state_prov",
	"zip":       "postal_code",
	"zip_code":  "postal_code",
	"latitude":  "lat",
	"longitude": "lng",
}

// Team converts to its key ("frc254") and to its team number.
var Team = &Kind{
	Name:  "Team",
	Alias: teamAlias,
	Str:   keyString("key"),
	Int:   keyInt("team_number"),
}

var TeamSimple = &Kind{
	Name: "TeamSimple",
	Alias: map[string]string{
		"nick":     "nickname",
		"number":   "team_number",
		"state":    "state_prov",
		"province": "state_prov",
	},
	Str: keyString("key"),
	Int: keyInt("team_number"),
}

var Robot = &Kind{
	Name: "Robot",
	Alias: map[string]string{
		"name":        "robot_name",
		"number":      "team_key",
		"team_number": "team_key",
	},
	Transforms: map[string]Transform{
		"number":      TeamNumberFromKey,
		"team_number": TeamNumberFromKey,
	},
	Str: keyString("key"),
	Int: keyInt("year"),
}

// Media covers both team media and social media presences.
var Media = &Kind{
	Name: "Media",
	Alias: map[string]string{
		"id": "foreign_key",
	},
	Str: keyString("foreign_key"),
}

// Districts

var District = &Kind{
	Name: "District",
	Alias: map[string]string{
		"long_name": "display_name",
		"name":      "display_name",
	},
	Str: keyString("key"),
	Int: keyInt("year"),
}

// Events

var Webcast = &Kind{
	Name: "Webcast",
	Str:  keyString("channel"),
}

var eventAlias = map[string]string{
	"code":       "event_code",
	"type":       "event_type",
	"state":      "state_prov",
	"province":   "state_prov",
	"start":      "start_date",
	"end":        "end_date",
	"start_time": "start_date",
	"end_time":   "end_date",
	"zip":        "postal_code",
	"zip_code":   "postal_code",
	"latitude":   "lat",
	"longitude":  "lng",
}

var Event = &Kind{
	Name:  "Event",
	Alias: eventAlias,
	Transforms: map[string]Transform{
		"district":   Nested(District),
		"webcasts":   NestedList(Webcast),
		"start_time": Date,
		"end_time":   Date,
	},
	Str: keyString("key"),
	Int: keyInt("year"),
}

var EventSimple = &Kind{
	Name: "EventSimple",
	Alias: map[string]string{
		"code":       "event_code",
		"type":       "event_type",
		"state":      "state_prov",
		"province":   "state_prov",
		"start":      "start_date",
		"end":        "end_date",
		"start_time": "start_date",
		"end_time":   "end_date",
	},
	Transforms: map[string]Transform{
		"district":   Nested(District),
		"start_time": Date,
		"end_time":   Date,
	},
	Str: keyString("key"),
	Int: keyInt("year"),
}

// Matches

var MatchAlliance = &Kind{
	Name: "MatchAlliance",
	Alias: map[string]string{
		"teams":        "team_keys",
		"team_numbers": "team_keys",
	},
	Transforms: map[string]Transform{
		"team_numbers": TeamNumbersFromKeys,
	},
	Int: keyInt("score"),
}

var MatchAlliances = &Kind{
	Name: "MatchAlliances",
	Transforms: map[string]Transform{
		"red":  Nested(MatchAlliance),
		"blue": Nested(MatchAlliance),
	},
}

// Match exposes time, predicted_time, actual_time and post_result_time as
// UTC times. The raw_ prefixed names return the epoch values.
var Match = &Kind{
	Name: "Match",
	Alias: map[string]string{
		"level":                "comp_level",
		"number":               "match_number",
		"set":                  "set_number",
		"raw_time":             "time",
		"raw_predicted_time":   "predicted_time",
		"raw_actual_time":      "actual_time",
		"raw_post_result_time": "post_result_time",
		"post_time":            "post_result_time",
	},
	Transforms: map[string]Transform{
		"time":                 UnixTime,
		"predicted_time":       UnixTime,
		"actual_time":          UnixTime,
		"post_result_time":     UnixTime,
		"raw_time":             Identity,
		"raw_predicted_time":   Identity,
		"raw_actual_time":      Identity,
		"raw_post_result_time": Identity,
		"alliances":            Nested(MatchAlliances),
	},
	Str: keyString("key"),
	Int: keyInt("match_number"),
}

// Awards

var AwardRecipient = &Kind{
	Name: "AwardRecipient",
	Alias: map[string]string{
		"team":        "team_key",
		"number":      "team_key",
		"team_number": "team_key",
		"name":        "awardee",
	},
	Transforms: map[string]Transform{
		"number":      TeamNumberFromKey,
		"team_number": TeamNumberFromKey,
	},
}

var Award = &Kind{
	Name: "Award",
	Alias: map[string]string{
		"type":       "award_type",
		"recipients": "recipient_list",
	},
	Transforms: map[string]Transform{
		"recipient_list": NestedList(AwardRecipient),
	},
	Str: keyString("name"),
	Int: keyInt("award_type"),
}

// Rankings

var WLTRecord = &Kind{
	Name: "WLTRecord",
	Alias: map[string]string{
		"w":    "wins",
		"win":  "wins",
		"l":    "losses",
		"loss": "losses",
		"t":    "ties",
		"tie":  "ties",
	},
}

var RankSortInfo = &Kind{
	Name: "RankSortInfo",
	Str:  keyString("name"),
}

// TeamRanking is one row of an event's qualification rankings.
var TeamRanking = &Kind{
	Name: "TeamRanking",
	Alias: map[string]string{
		"disqualified": "dq",
		"average":      "qual_average",
		"key":          "team_key",
		"wlt":          "record",
		"number":       "team_key",
		"team_number":  "team_key",
	},
	Transforms: map[string]Transform{
		"number":      TeamNumberFromKey,
		"team_number": TeamNumberFromKey,
		"record":      Nested(WLTRecord),
	},
	Str: keyString("team_key"),
	Int: keyInt("rank"),
}

var EventRanking = &Kind{
	Name: "EventRanking",
	Transforms: map[string]Transform{
		"rankings":        NestedList(TeamRanking),
		"sort_order_info": NestedList(RankSortInfo),
	},
}

// Team status at an event

var TeamEventStatusRank = &Kind{
	Name: "TeamEventStatusRank",
	Transforms: map[string]Transform{
		"ranking":         Nested(TeamRanking),
		"sort_order_info": NestedList(RankSortInfo),
	},
}

var AllianceBackup = &Kind{
	Name: "AllianceBackup",
}

var TeamEventStatusAlliance = &Kind{
	Name: "TeamEventStatusAlliance",
	Alias: map[string]string{
		"seed": "number",
	},
	Transforms: map[string]Transform{
		"backup": Nested(AllianceBackup),
	},
	Str: keyString("name"),
	Int: keyInt("number"),
}

var TeamEventStatusPlayoff = &Kind{
	Name: "TeamEventStatusPlayoff",
	Alias: map[string]string{
		"current_wlt":    "current_level_record",
		"current_record": "current_level_record",
		"average":        "playoff_average",
	},
	Transforms: map[string]Transform{
		"current_level_record": Nested(WLTRecord),
		"record":               Nested(WLTRecord),
	},
}

var TeamEventStatus = &Kind{
	Name: "TeamEventStatus",
	Transforms: map[string]Transform{
		"qual":     Nested(TeamEventStatusRank),
		"alliance": Nested(TeamEventStatusAlliance),
		"playoff":  Nested(TeamEventStatusPlayoff),
	},
}
