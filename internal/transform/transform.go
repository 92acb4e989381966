// Package transform turns a decoded container metadata record into the
// document stored for each replay.
package transform

import (
	"github.com/backmassage/roflconv/internal/classify"
)

// Record is one replay document: string keys to JSON-compatible values.
type Record map[string]any

// Keys read or written by [Transform].
const (
	KeyFileName      = "jsonFileName"
	KeyPatchVersion  = "patchVersion"
	KeyOfficialMatch = "officialMatch"
	KeyGameLength    = "gameLength"
	KeyGameDuration  = "gameDuration"
	KeyStatsJSON     = "statsJson"
	KeyParticipants  = "participants"
	KeyTruePosition  = "TRUE_POSITION"
)

// Positions is the role cycle assigned to participants by index. It is a
// positional guess based on the usual lobby order, not the in-game role.
var Positions = [5]string{"TOP", "JUNGLE", "MIDDLE", "BOTTOM", "UTILITY"}

// Transform annotates rec in place: it sets the file name, the patch version
// (only when hasPatch) and the official-match tier, renames gameLength and
// statsJson when present, and tags every participant with TRUE_POSITION.
func Transform(rec Record, name, patchVersion string, hasPatch bool) {
	rec[KeyFileName] = name
	if hasPatch {
		rec[KeyPatchVersion] = patchVersion
	}
	rec[KeyOfficialMatch] = int(classify.Classify(name))

	rename(rec, KeyGameLength, KeyGameDuration)
	rename(rec, KeyStatsJSON, KeyParticipants)

	AssignPositions(rec)
}

func rename(rec Record, from, to string) {
	v, ok := rec[from]
	if !ok {
		return
	}
	rec[to] = v
	delete(rec, from)
}

// AssignPositions sets TRUE_POSITION on each object in rec["participants"]
// by index modulo 5. Non-object entries keep their slot in the cycle but
// are left untouched.
func AssignPositions(rec Record) {
	list, ok := rec[KeyParticipants].([]any)
	if !ok {
		return
	}
	for i, p := range list {
		switch obj := p.(type) {
		case map[string]any:
			obj[KeyTruePosition] = Positions[i%len(Positions)]
		case Record:
			obj[KeyTruePosition] = Positions[i%len(Positions)]
		}
	}
}
