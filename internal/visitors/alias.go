package visitors

import "hash/fnv"

var aliasAdjectives = []string{
	"Curious", "Happy", "Clever", "Wise", "Playful", "Brave", "Swift", "Gentle", "Smart", "Busy",
	"Daring", "Fearless", "Bold", "Energetic", "Lively", "Spirited", "Vibrant", "Agile", "Nimble", "Quick",
	"Bright", "Brilliant", "Radiant", "Glowing", "Sparkling", "Cheerful", "Joyful", "Merry", "Jolly", "Thrilled",
	"Creative", "Imaginative", "Inventive", "Artistic", "Resourceful", "Elegant", "Graceful", "Polished", "Stylish", "Dapper",
	"Friendly", "Kind", "Warm", "Amiable", "Cordial", "Peaceful", "Calm", "Serene", "Tranquil", "Quiet",
}

var aliasAnimals = []string{
	"Panda", "Fox", "Owl", "Otter", "Lion", "Eagle", "Deer", "Raven", "Beaver", "Koala",
	"Sloth", "Hamster", "Cat", "Bear", "Penguin", "Kangaroo", "Parrot", "Giraffe", "Duck", "Raccoon",
	"Dolphin", "Whale", "Seahorse", "Turtle", "Octopus", "Falcon", "Hawk", "Swan", "Crane", "Heron",
	"Hedgehog", "Squirrel", "Rabbit", "Wolf", "Tiger", "Lynx", "Badger", "Marten", "Stoat", "Mole",
}

// Alias returns an anonymized display name for the given fingerprint, so the
// roster can label visitors without exposing raw identifiers.
func Alias(fingerprint string) string {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	index := int(h.Sum32())

	adjIndex := index % len(aliasAdjectives)
	animalIndex := (index / len(aliasAdjectives)) % len(aliasAnimals)

	return aliasAdjectives[adjIndex] + " " + aliasAnimals[animalIndex]
}
