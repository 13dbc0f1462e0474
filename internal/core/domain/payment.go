package domain

// RoyaltyPercent is the organizer's share of every resale.
const RoyaltyPercent = 5

// Payment is the currency leg submitted together with a program call.
type Payment struct {
	Sender   AccountID
	Receiver AccountID
	Amount   uint64
}

// ResaleSplit is how a resale payment is divided.
type ResaleSplit struct {
	Amount       uint64
	Royalty      uint64
	SellerPayout uint64
}

// SplitResale computes royalty = floor(amount*5/100) and gives the remainder
// to the seller, so Royalty+SellerPayout == Amount.
func SplitResale(amount uint64) ResaleSplit {
	// amount/100*5 + (amount%100)*5/100 == floor(amount*5/100) without overflow.
	royalty := amount/100*RoyaltyPercent + (amount%100)*RoyaltyPercent/100
	return ResaleSplit{
		Amount:       amount,
		Royalty:      royalty,
		SellerPayout: amount - royalty,
	}
}
