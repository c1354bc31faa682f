package shelter

import (
	"fmt"
	"sort"
	"strings"
)

// inventoryTriggers maps literal phrases (already normalized) to inventory
// item keys. "all" yields the full supply digest. Multilingual variants cover
// the languages kiosks see most; they match the untranslated transcript.
var inventoryTriggers = []struct {
	phrase string
	item   string
}{
	{"is there food", "food"},
	{"is food available", "food"},
	{"is there water", "water"},
	{"is water available", "water"},
	{"are there blankets", "blankets"},
	{"is there medicine", "medicine"},
	{"is medicine available", "medicine"},
	{"are there hygiene kits", "hygiene_kits"},
	{"is there clothing", "clothing"},
	{"are there diapers", "diapers"},
	{"are there charging ports", "charging"},
	{"is there a charging station", "charging"},
	{"are there cots", "cots"},
	{"what supplies are available", "all"},
	{"supply status", "all"},
	{"what do you have", "all"},
	{"inventory", "all"},
	{"may pagkain", "food"},
	{"may tubig", "water"},
	{"may kumot", "blankets"},
	{"may gamot", "medicine"},
	{"may damit", "clothing"},
	{"may lampin", "diapers"},
	{"ano ang mayroon dito", "all"},
	{"hay comida", "food"},
	{"hay agua", "water"},
	{"hay mantas", "blankets"},
	{"hay medicamentos", "medicine"},
	{"hay medicinas", "medicine"},
	{"que tienen aqui", "all"},
	{"shokuhin wa arimasu ka", "food"},
	{"mizu wa arimasu ka", "water"},
	{"mofu wa arimasu ka", "blankets"},
	{"eumsik isseoyo", "food"},
	{"mul isseoyo", "water"},
	{"ibul isseoyo", "blankets"},
}

var itemNames = map[string]string{
	"water":        "Drinking water",
	"food":         "Food",
	"blankets":     "Blankets",
	"medicine":     "Medicine",
	"hygiene_kits": "Hygiene kits",
	"clothing":     "Clothing",
	"diapers":      "Diapers",
	"charging":     "Charging stations",
	"cots":         "Cots",
}

var statusPhrases = map[string]string{
	"available":   "is available",
	"limited":     "is available but supply is limited",
	"unavailable": "is currently not available",
	"unknown":     "— current availability is unknown",
}

// CheckInventory matches a normalized query against the trigger table and
// formats a supply answer from the config snapshot. Returns ("", false) when
// no trigger fires or no inventory is configured. A hit short-circuits the
// rest of the retrieval pipeline: no embedding, no corpus access.
func CheckInventory(normalizedQuery string, config *ConfigSnapshot) (string, bool) {
	items := inventoryItems(config)
	if len(items) == 0 {
		return "", false
	}

	matched := ""
	for _, trigger := range inventoryTriggers {
		if strings.Contains(normalizedQuery, trigger.phrase) {
			matched = trigger.item
			break
		}
	}
	if matched == "" {
		return "", false
	}

	if matched == "all" {
		return formatAllItems(items), true
	}
	return formatItem(matched, items[matched]), true
}

func inventoryItems(config *ConfigSnapshot) map[string]map[string]any {
	inv, ok := config.Get("inventory").(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := inv["items"].(map[string]any)
	if !ok {
		return nil
	}

	items := make(map[string]map[string]any, len(raw))
	for key, v := range raw {
		if item, ok := v.(map[string]any); ok {
			items[key] = item
		}
	}
	return items
}

func itemName(key string) string {
	if name, ok := itemNames[key]; ok {
		return name
	}
	name := strings.ReplaceAll(key, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func itemField(item map[string]any, field string) string {
	s, _ := item[field].(string)
	return s
}

func formatItem(key string, item map[string]any) string {
	if item == nil {
		return fmt.Sprintf("There is no information available for %s.", strings.ReplaceAll(key, "_", " "))
	}

	status := itemField(item, "status")
	phrase, ok := statusPhrases[status]
	if !ok {
		phrase = "— status unknown"
	}

	parts := []string{fmt.Sprintf("%s %s.", itemName(key), phrase)}
	if quantity := itemField(item, "quantity"); quantity != "" {
		parts = append(parts, fmt.Sprintf("Quantity: %s.", quantity))
	}
	if location := itemField(item, "location"); location != "" {
		parts = append(parts, fmt.Sprintf("Location: %s.", location))
	}
	if notes := itemField(item, "notes"); notes != "" {
		if !strings.HasSuffix(notes, ".") {
			notes += "."
		}
		parts = append(parts, notes)
	}
	return strings.Join(parts, " ")
}

func formatAllItems(items map[string]map[string]any) string {
	statusWords := map[string]string{
		"available":   "available",
		"limited":     "limited (low stock)",
		"unavailable": "not available",
		"unknown":     "unknown",
	}

	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := []string{"Here is the current supply status at this center."}
	for _, key := range keys {
		item := items[key]
		word, ok := statusWords[itemField(item, "status")]
		if !ok {
			word = "unknown"
		}
		line := fmt.Sprintf("%s: %s", itemName(key), word)
		if qty := itemField(item, "quantity"); qty != "" {
			line += fmt.Sprintf(" (%s)", qty)
		}
		lines = append(lines, line+".")
	}
	return strings.Join(lines, " ")
}
