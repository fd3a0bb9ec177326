package service

// recoveryWords is the pool recovery codes draw from. 256 words and five
// draws give 40 bits of entropy, and Argon2id hashing makes offline guessing
// expensive. Words are short, lowercase, and unambiguous when read aloud.
var recoveryWords = []string{
	"acorn", "amber", "anchor", "anvil", "apple", "arrow", "aspen", "atlas",
	"badge", "bagel", "bamboo", "banjo", "barn", "basil", "beacon", "berry",
	"birch", "bison", "blade", "bloom", "bolt", "border", "bottle", "branch",
	"brass", "bread", "brick", "bridge", "brook", "brush", "bucket", "bugle",
	"butter", "cabin", "cactus", "camel", "candle", "canoe", "canyon", "card",
	"cargo", "carrot", "castle", "cedar", "cello", "chalk", "cherry", "chess",
	"chisel", "cider", "cliff", "clock", "cloud", "clover", "coast", "cobalt",
	"coffee", "comet", "compass", "copper", "coral", "cotton", "crane", "crater",
	"creek", "cricket", "crystal", "daisy", "dawn", "delta", "desk", "dice",
	"dolphin", "dome", "donkey", "door", "dragon", "drum", "dune", "eagle",
	"easel", "echo", "elbow", "ember", "engine", "fabric", "falcon", "feather",
	"fence", "fern", "ferry", "fiddle", "field", "flame", "flint", "flower",
	"flute", "forest", "fossil", "fox", "frost", "galaxy", "garden", "garlic",
	"gate", "gecko", "ginger", "glacier", "glass", "globe", "glove", "goose",
	"granite", "grape", "gravel", "grove", "guitar", "hammer", "harbor", "harp",
	"hazel", "heron", "hill", "honey", "hood", "horse", "hotel", "house",
	"igloo", "inlet", "iris", "iron", "island", "ivory", "jacket", "jade",
	"jaguar", "jasmine", "jelly", "jewel", "jungle", "kayak", "kettle", "kiwi",
	"knot", "ladder", "lagoon", "lake", "lantern", "larch", "laser", "lemon",
	"lentil", "lilac", "lily", "lime", "lion", "lizard", "lobster", "locket",
	"lotus", "lunar", "madder", "magnet", "mango", "maple", "marble", "marsh",
	"mason", "meadow", "melon", "mesa", "meteor", "mint", "mirror", "monk",
	"moose", "mountain", "mural", "mustard", "nectar", "needle", "nickel", "north",
	"nutmeg", "oak", "ocean", "olive", "onion", "opal", "orange", "orbit",
	"orchid", "osprey", "otter", "oyster", "paddle", "pansy", "paper", "parrot",
	"peach", "pearl", "pebble", "pecan", "pelican", "pepper", "petal", "piano",
	"pigeon", "pillow", "pine", "planet", "plum", "pocket", "polar", "pond",
	"poppy", "prairie", "prism", "pumpkin", "quartz", "quill", "rabbit", "raft",
	"raisin", "raven", "reef", "ribbon", "ridge", "river", "robin", "rocket",
	"rose", "rubber", "ruby", "saddle", "sage", "salmon", "sand", "sapphire",
	"scarf", "shell", "silver", "sled", "spruce", "stone", "summit", "swan",
	"thistle", "tiger", "timber", "topaz", "tulip", "turtle", "velvet", "willow",
}
