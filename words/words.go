// words/words.go
package words

import (
	"math/rand"
	"strings"
)

// List 可被猜的全部词条
var List = []string{
	"airplane", "alarm", "ambulance", "anchor", "angel", "ant", "apple",
	"arrow", "astronaut", "avocado", "axe", "backpack", "balloon", "banana",
	"barn", "baseball", "basket", "bat", "beach", "bear", "beard", "bed",
	"bee", "bell", "bicycle", "binoculars", "bird", "blanket", "boat", "bone",
	"book", "boot", "bottle", "bowl", "bread", "bridge", "broom", "brush",
	"bucket", "butterfly", "cactus", "cake", "camel", "camera", "candle",
	"cannon", "canoe", "car", "carrot", "castle", "cat", "caterpillar",
	"chair", "cheese", "cherry", "chicken", "church", "circus", "cloud",
	"clown", "coconut", "comb", "compass", "computer", "cookie", "couch",
	"cow", "crab", "crayon", "crocodile", "crown", "cup", "curtain", "deer",
	"desk", "diamond", "dinosaur", "dog", "dolphin", "donut", "door",
	"dragon", "drum", "duck", "eagle", "ear", "egg", "elephant", "envelope",
	"eye", "feather", "fence", "fire truck", "fireplace", "fish", "flag",
	"flashlight", "flower", "fork", "fountain", "fox", "frog", "garden",
	"ghost", "giraffe", "glasses", "glove", "grapes", "guitar", "hammer",
	"hamburger", "hat", "hedgehog", "helicopter", "horse", "hot dog",
	"hourglass", "house", "ice cream", "igloo", "island", "jacket",
	"jellyfish", "kangaroo", "key", "kite", "knife", "ladder", "lamp",
	"leaf", "lemon", "lighthouse", "lion", "lobster", "lock", "map",
	"mermaid", "microphone", "monkey", "moon", "mountain", "mouse",
	"mushroom", "mustache", "nest", "octopus", "onion", "orange", "owl",
	"palm tree", "pancake", "panda", "parachute", "parrot", "peanut",
	"pencil", "penguin", "piano", "pig", "pillow", "pineapple", "pirate",
	"pizza", "popcorn", "pumpkin", "rabbit", "rainbow", "robot", "rocket",
	"sandcastle", "saxophone", "scarecrow", "scissors", "shark", "sheep",
	"ship", "shoe", "skateboard", "snail", "snake", "snowman", "sock",
	"spider", "spoon", "squirrel", "star", "strawberry", "submarine", "sun",
	"sunflower", "swing", "sword", "telescope", "tent", "tiger", "toaster",
	"tomato", "toothbrush", "tornado", "tractor", "train", "tree", "truck",
	"trumpet", "turtle", "umbrella", "unicorn", "vase", "violin", "volcano",
	"watermelon", "whale", "wheel", "windmill", "window", "wolf", "zebra",
}

// Random 从词库随机取一个词
func Random() string {
	return List[rand.Intn(len(List))]
}

// RandomWords picks n distinct candidate words for the drawing player.
func RandomWords(n int) []string {
	if n > len(List) {
		n = len(List)
	}
	perm := rand.Perm(len(List))
	picked := make([]string, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, List[idx])
	}
	return picked
}

// Mask replaces every non-space rune with an underscore so guessers can see
// the shape of the word without its letters.
func Mask(word string) string {
	var sb strings.Builder
	for _, r := range word {
		if r == ' ' {
			sb.WriteRune(' ')
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
