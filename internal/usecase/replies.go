package usecase

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"exchange-agent/internal/domain"
)

const (
	pongText       = "pong"
	cityPromptText = "Which city are you in? Send me its name and I will find the best dollar rates."
	helpPromptText = "Please specify a city first. Send me its name, then choose buy or sell."
	searchingText  = "Searching for branches..."

	inlineHelpTitle = "How to use me"
)

var intentKeyboard = [][]string{{string(domain.IntentBuy), string(domain.IntentSell)}}

// capitalizeFirst upper-cases the first letter only, for city display.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func intentPromptText(city string) string {
	return fmt.Sprintf("Dollars in %s: would you like to buy or sell?", capitalizeFirst(city))
}

// rateReplyText renders the consolidated rate message for one intent.
// Figures keep the two-decimal convention of the source values.
func rateReplyText(city string, intent domain.Intent, bundle domain.RateBundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "USD in %s\n", capitalizeFirst(city))
	fmt.Fprintf(&sb, "Central bank rate: %.2f\n", bundle.Reference)

	switch intent {
	case domain.IntentBuy:
		fmt.Fprintf(&sb, "Buy for %.2f (%s)", bundle.BestBuy.Rate, bundle.BestBuy.Description)
	case domain.IntentSell:
		fmt.Fprintf(&sb, "Sell for %.2f (%s)", bundle.BestSell.Rate, bundle.BestSell.Description)
	}

	if bundle.MarketQuote != nil {
		fmt.Fprintf(&sb, "\nMarket quote: %.2f", *bundle.MarketQuote)
	}
	return sb.String()
}

// inlineReplyText is the one-line summary used for inline query answers.
func inlineReplyText(city string, bundle domain.RateBundle) string {
	return fmt.Sprintf("USD in %s: buy %.2f, sell %.2f (central bank %.2f)",
		capitalizeFirst(city), bundle.BestBuy.Rate, bundle.BestSell.Rate, bundle.Reference)
}

func inlineReplyTitle(city string) string {
	return "USD rates in " + capitalizeFirst(city)
}

// branchSummaryText renders the text half of one branch announcement.
func branchSummaryText(b domain.Branch) string {
	parts := []string{b.Name}
	if b.Address != "" {
		parts = append(parts, b.Address)
	}
	if b.Phone != "" {
		parts = append(parts, b.Phone)
	}
	return strings.Join(parts, "\n")
}
