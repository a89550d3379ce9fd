package catalog

const (
	LightsSubjectSemanticValue = "SUBJECT_LIGHTS"
	AllLightsSemanticValue     = "LIGHT_IDENTIFIER_ALL"
)

var (
	lightsSubjectLabels = []string{"lights", "light", "lamp", "lamps", "lightswitch", "lightswitches"}
	allLightsLabels     = []string{"all", "every", "whole house", "everywhere"}
)

// houseRooms is the fixed room list for this house.
var houseRooms = []Identifier{
	{ID: "master-bedroom", SemanticValue: "MASTER_BEDROOM", Labels: []string{"master bedroom", "big bedroom", "suite"}},
	{ID: "small-bathroom", SemanticValue: "SMALL_BATHROOM", Labels: []string{"half bath"}},
	{ID: "big-bathroom", SemanticValue: "BIG_BATHROOM", Labels: []string{"big bathroom", "main bathroom"}},
	{ID: "kitchen", SemanticValue: "KITCHEN", Labels: []string{"kitchen", "dining room"}},
	{ID: "living-room", SemanticValue: "LIVING_ROOM", Labels: []string{"living room", "tv room", "entrance"}},
	{ID: "garage", SemanticValue: "GARAGE", Labels: []string{"garage", "car port"}},
	{ID: "office", SemanticValue: "OFFICE", Labels: []string{"office", "computer room"}},
	{ID: "hallway", SemanticValue: "HALLWAY", Labels: []string{"hallway"}},
	{ID: "guest-bedroom", SemanticValue: "GUEST_BEDROOM", Labels: []string{"guest bedroom"}},
	{ID: "hedgehog-room", SemanticValue: "HEDGEHOG_ROOM", Labels: []string{"hedgehog room"}},
}

// LightsSubject is the only subject this house understands.
func LightsSubject() Subject {
	return Subject{SemanticValue: LightsSubjectSemanticValue, Labels: append([]string(nil), lightsSubjectLabels...)}
}

// AllLights builds the synthetic "all lights" identifier. Its labels are the
// collective labels followed by every room label; rooms must be listed before
// it in a catalog so a room label still resolves to the room itself.
func AllLights(rooms []Identifier, collective ...string) Identifier {
	if len(collective) == 0 {
		collective = allLightsLabels
	}
	labels := append([]string(nil), collective...)
	for _, room := range rooms {
		labels = append(labels, room.Labels...)
	}
	return Identifier{ID: "all", SemanticValue: AllLightsSemanticValue, Labels: labels}
}

// House returns the static catalog for the house, bound to one executor.
func House(executor Executor) (*Catalog, error) {
	rooms := make([]Identifier, 0, len(houseRooms)+1)
	for _, room := range houseRooms {
		rooms = append(rooms, Identifier{ID: room.ID, SemanticValue: room.SemanticValue, Labels: append([]string(nil), room.Labels...)})
	}
	identifiers := append(rooms, AllLights(rooms))

	return New(identifiers, []Action{TurnOn(executor), TurnOff(executor)}, LightsSubject())
}
