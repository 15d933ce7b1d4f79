package chef

import (
	"fmt"
	"math/rand"
	"strings"
)

const systemPrompt = `You are a nutritionist-chef. Create a healthy, tasty recipe ONLY with the ingredients provided.
Return STRICT JSON with these keys:
  "title" (string),
  "servings" (integer 1-12),
  "ingredients" (array of objects {"name": string, "grams": number}),
  "steps" (array of strings),
  "cuisine" (string),
  "meal_type" (one of Breakfast, Lunch, Dinner, Snack, Dessert),
  "dietary_tag" (string such as Vegetarian, Vegan, High-Protein, Gluten-Free or None),
  "difficulty" (one of Easy, Medium, Hard),
  "total_time_minutes" (integer),
  "tags" (array of short strings).
All ingredient quantities MUST be in grams; estimate sensible amounts.
Do not add ingredients that were not provided, except salt, pepper and water.`

// BuildPrompt returns the system and user prompts for a generation request.
func BuildPrompt(items []string, req Request) (system, user string) {
	var sb strings.Builder
	sb.WriteString("Ingredients: ")
	sb.WriteString(strings.Join(items, ", "))
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("1) Use only these ingredients and mention every one of them in the steps.\n")
	sb.WriteString("2) Provide realistic grams per ingredient for the number of servings.\n")
	sb.WriteString("3) Servings must be an integer.\n")
	sb.WriteString("4) Output VALID JSON only. No extra commentary.\n")

	n := 5
	for _, hint := range []struct{ label, value string }{
		{"The recipe should be %s.", req.DietaryPreference},
		{"The cuisine should be %s.", req.Cuisine},
		{"It should be a %s dish.", req.MealType},
	} {
		if v := strings.TrimSpace(hint.value); v != "" {
			fmt.Fprintf(&sb, "%d) "+hint.label+"\n", n, v)
			n++
		}
	}

	return systemPrompt, sb.String()
}

// Presets are the ingredient lists offered by "Surprise me".
var Presets = []string{
	"salmon, sweet potato, asparagus, olive oil, lemon",
	"ground turkey, bell peppers, black beans, avocado, lime",
	"tofu, broccoli, brown rice, sesame oil, ginger",
	"eggs, spinach, mushrooms, cheese, herbs",
	"chicken thighs, zucchini, tomatoes, basil, garlic",
}

// Surprise returns a random preset ingredient list.
func Surprise() string {
	return Presets[rand.Intn(len(Presets))]
}
