package model

// Swimmer is the roster record offered when an empty lane is filled by hand.
// Only the fields the heat sheet shows are carried.
type Swimmer struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
    DOB  string `json:"dob"`
    Club string `json:"club"`
}
