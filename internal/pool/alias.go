package pool

// statsAliases maps roster display names to the abbreviated names used in
// the statistics tables. Names absent from the map are looked up verbatim.
var statsAliases = map[string]string{
	"Ravindra Jadeja":     "RA Jadeja",
	"Yashasvi Jaiswal":    "YBK Jaiswal",
	"Deepak Chahar":       "DL Chahar",
	"Ambati Rayudu":       "AT Rayudu",
	"Moeen Ali":           "MM Ali",
	"Suresh Raina":        "SK Raina",
	"Sam Curran":          "SM Curran",
	"Rishabh Pant":        "RR Pant",
	"Axar Patel":          "AR Patel",
	"Prithvi Shaw":        "PP Shaw",
	"Shikhar Dhawan":      "S Dhawan",
	"Anrich Nortje":       "A Nortje",
	"Kagiso Rabada":       "K Rabada",
	"Shreyas Iyer":        "SS Iyer",
	"Andre Russell":       "AD Russell",
	"Sunil Narine":        "SP Narine",
	"Nitish Rana":         "N Rana",
	"Eoin Morgan":         "EJG Morgan",
	"Varun Chakravarthy":  "CV Varun",
	"Shahrukh Khan":       "M Shahrukh Khan",
	"Dinesh Karthik":      "KD Karthik",
	"Rohit Sharma":        "RG Sharma",
	"Jasprit Bumrah":      "JJ Bumrah",
	"Suryakumar Yadav":    "SA Yadav",
	"Kieron Pollard":      "KA Pollard",
	"Hardik Pandya":       "HH Pandya",
	"Krunal Pandya":       "KH Pandya",
	"Rahul Chahar":        "RD Chahar",
	"Chris Gayle":         "CH Gayle",
	"Mayank Agarwal":      "MA Agarwal",
	"Nicholas Pooran":     "N Pooran",
	"Virat Kohli":         "V Kohli",
	"Devdutt Padikkal":    "D Padikkal",
	"Glenn Maxwell":       "GJ Maxwell",
	"Yuzvendra Chahal":    "YS Chahal",
	"Harshal Patel":       "HV Patel",
	"Sanju Samson":        "SV Samson",
	"Jos Buttler":         "JC Buttler",
	"Rahul Tewatia":       "R Tewatia",
	"Riyan Parag":         "R Parag",
	"Chris Morris":        "CH Morris",
	"Kane Williamson":     "KS Williamson",
	"David Warner":        "DA Warner",
	"Bhuvneshwar Kumar":   "B Kumar",
	"Jonny Bairstow":      "JM Bairstow",
	"Manish Pandey":       "MK Pandey",
	"Vijay Shankar":       "V Shankar",
	"Faf du Plessis":      "F du Plessis",
	"Liam Livingstone":    "LS Livingstone",
	"Quinton de Kock":     "Q de Kock",
	"Ravichandran Ashwin": "R Ashwin",
	"Wriddhiman Saha":     "WP Saha",
	"Dan Christian":       "DT Christian",
	"Khaleel Ahmed":       "KK Ahmed",
	"David Miller":        "DA Miller",
	"Trent Boult":         "TA Boult",
	"Mahipal Lomror":      "MK Lomror",
	"Adam Milne":          "AF Milne",
	"Kedar Jadhav":        "KM Jadhav",
	"Deepak Hooda":        "DJ Hooda",
	"Shimron Hetmyer":     "SO Hetmyer",
	"Navdeep Saini":       "NA Saini",
	"Dwayne Bravo":        "DJ Bravo",
	"Chetan Sakariya":     "C Sakariya",
	"Shardul Thakur":      "SN Thakur",
	"Tilak Verma":         "Tilak Varma",
	"Jofra Archer":        "JC Archer",
	"Lockie Ferguson":     "LH Ferguson",
	"Nathan Ellis":        "NT Ellis",
	"Ben Stokes":          "BA Stokes",
}

// StatsName resolves a roster display name to its stats-table key.
func StatsName(displayName string) string {
	if mapped, ok := statsAliases[displayName]; ok {
		return mapped
	}
	return displayName
}
