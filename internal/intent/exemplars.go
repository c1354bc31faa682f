package intent

// exemplars holds the exemplar phrases each intent centroid is built from.
// The inventory list deliberately includes multilingual variants so spoken
// queries that skip translation still land near the right centroid.
var exemplars = map[string][]string{
	"greeting": {
		"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
		"howdy", "hi there", "hello there", "greetings", "hallo",
	},
	"identity": {
		"who are you", "what are you", "what is this", "what is this kiosk",
		"are you a robot", "are you human", "what is this machine",
	},
	"capability": {
		"what can you do", "what can you help with", "how can you help",
		"what information do you have", "what do you know", "can you help me",
	},
	"small_talk": {
		"how are you", "how is it going", "nice day", "thank you", "thanks",
		"okay", "alright", "got it", "I see",
	},
	"food": {
		"where is food", "when is lunch", "when is dinner", "meal times",
		"where do we eat", "food schedule", "breakfast hours", "where can I get food",
		"is there food", "meal distribution", "feeding times", "cafeteria",
	},
	"medical": {
		"I need a doctor", "medical help", "where is the nurse", "I feel sick",
		"medical assistance", "first aid", "where is medical", "health services",
		"I need medicine", "medical tent", "doctor", "nurse",
	},
	"registration": {
		"how do I register", "where do I sign in", "registration desk",
		"check in", "sign up", "register my family", "registration process",
		"where to register", "get registered", "intake",
	},
	"sleeping": {
		"where do I sleep", "sleeping area", "where can I sleep", "beds",
		"sleeping quarters", "cots", "rest area", "where to sleep",
		"sleeping arrangements", "overnight",
	},
	"transportation": {
		"how do I leave", "bus schedule", "when is the bus", "transportation",
		"ride", "shuttle", "how to get out", "when can I leave",
		"bus to town", "transport", "pickup",
	},
	"safety": {
		"is it safe", "emergency", "evacuation", "where to go in emergency",
		"safety", "fire exit", "emergency exit", "what if there is a fire",
	},
	"facilities": {
		"where is the bathroom", "restroom", "toilet", "showers",
		"laundry", "charging station", "phone charging", "wi-fi",
		"bathroom", "washroom", "where can I shower",
	},
	"lost_person": {
		"I lost my family", "missing person", "lost my child", "find my family",
		"reunification", "lost and found", "where is my husband", "missing child",
	},
	"pets": {
		"can I bring my dog", "pets allowed", "where do I put my pet",
		"animal", "dog", "cat", "pet area", "pet shelter",
	},
	"donations": {
		"where do I donate", "how to donate", "donation center",
		"I want to donate", "accepting donations", "drop off donations",
	},
	"hours": {
		"what time do you open", "when do you close", "hours of operation",
		"opening hours", "when is the desk open", "what time",
	},
	"location": {
		"where am I", "address", "where is this place", "how do I get here",
		"directions", "what is this building", "where is the center",
	},
	"general_info": {
		"what services are available", "what do you offer", "general information",
		"tell me about the center", "what is available", "help",
		"I need help", "I have a question", "information",
	},
	"goodbye": {
		"bye", "goodbye", "see you", "thank you goodbye", "that's all",
		"nothing else", "done", "that's it",
	},
	"inventory": {
		"what supplies are available", "is there food", "do you have water",
		"are there blankets available", "what do you have here",
		"is medicine available", "are there hygiene kits", "inventory status",
		"is there clothing", "are there diapers", "are charging ports available",
		"are there cots", "what can i get", "supply levels", "what is available",
		"may pagkain ba", "may gamot ba", "may tubig ba",
		"hay comida", "hay agua", "hay medicamentos",
	},
}
