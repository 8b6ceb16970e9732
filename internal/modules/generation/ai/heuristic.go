package ai

import (
	"fmt"
	"strings"

	"github.com/rankforge/core/internal/modules/catalog/product"
)

const heuristicMaxItems = 10

// heuristicRules is one kind's template table. Selection order is fixed:
// category templates, then the price-tier templates, then one problem-driven
// template per detected problem. The generic list fires only when nothing
// else produced an item.
type heuristicRules struct {
	categories map[string][]string
	priceTiers map[string][]string
	problems   []string
	generic    []string
}

func (r heuristicRules) apply(analysis product.Analysis) []string {
	out := make([]string, 0, heuristicMaxItems)
	for _, category := range analysis.Categories {
		out = appendTemplates(out, r.categories[category])
	}
	out = appendTemplates(out, r.priceTiers[analysis.PriceTier])
	if len(r.problems) > 0 {
		for i, problem := range analysis.ProblemsSolved {
			template := r.problems[i%len(r.problems)]
			out = appendTemplateItem(out, fmt.Sprintf(template, problem))
		}
	}
	if len(out) == 0 {
		out = appendTemplates(out, r.generic)
	}
	return out
}

func appendTemplates(dst []string, src []string) []string {
	for _, item := range src {
		dst = appendTemplateItem(dst, item)
	}
	return dst
}

func appendTemplateItem(dst []string, item string) []string {
	if len(dst) >= heuristicMaxItems {
		return dst
	}
	item = strings.TrimSpace(item)
	if item == "" {
		return dst
	}
	for _, existing := range dst {
		if strings.EqualFold(existing, item) {
			return dst
		}
	}
	return append(dst, item)
}

// HeuristicPersonas derives buyer personas from the product analysis alone.
// Pure and deterministic; the last resort when every provider leg fails.
func HeuristicPersonas(analysis product.Analysis) []string {
	return personaRules.apply(analysis)
}

// HeuristicTitles derives article title ideas from the product analysis.
func HeuristicTitles(analysis product.Analysis) []string {
	return titleRules.apply(analysis)
}

// HeuristicKeywords derives keyword suggestions from the product analysis.
func HeuristicKeywords(analysis product.Analysis) []string {
	return keywordRules.apply(analysis)
}

var personaRules = heuristicRules{
	categories: map[string][]string{
		"water_treatment": {
			"Homeowners battling hard water stains and scale in their appliances",
			"Families who want cleaner, safer drinking water straight from the tap",
		},
		"audio": {
			"Commuters and travelers who need immersive sound on the go",
			"Remote workers who spend all day on calls and playlists",
		},
		"computing": {
			"Professionals upgrading their setup for performance and reliability",
			"Students looking for dependable hardware on a deadline",
		},
		"kitchen": {
			"Home cooks who want restaurant results without the restaurant",
			"Busy parents shopping for appliances that save weeknight time",
		},
		"fitness": {
			"Beginners building a home workout habit for the first time",
			"Athletes tracking progress and chasing measurable gains",
		},
		"home_security": {
			"Homeowners who want to monitor their property from anywhere",
			"Renters looking for security that installs without drilling",
		},
		"outdoor": {
			"Weekend campers gearing up for their next trip",
			"Hikers who research gear durability before they buy",
		},
		"pet_care": {
			"Pet owners who treat their animals like family",
			"First-time adopters setting up for a new companion",
		},
		"beauty": {
			"Skincare enthusiasts who read ingredient lists before buying",
			"Shoppers hunting for salon results at home",
		},
		"baby": {
			"Expecting parents researching safety certifications",
			"New parents optimizing for easy cleaning and durability",
		},
	},
	priceTiers: map[string][]string{
		"premium": {
			"Quality-first buyers willing to pay more for longevity",
			"Affluent shoppers comparing premium brands before a big purchase",
		},
		"mid-range": {
			"Value hunters balancing price against features",
		},
		"budget": {
			"Price-sensitive shoppers hunting for the best deal",
		},
		"mixed": {
			"Comparison shoppers weighing options across price points",
		},
	},
	problems: []string{
		"People actively searching for a fix for %s",
		"Buyers frustrated by %s and ready to spend on a solution",
	},
	generic: []string{
		"Value-conscious shoppers comparing products online",
		"First-time buyers doing research before a purchase",
		"Gift shoppers looking for a safe, well-reviewed choice",
		"Repeat customers who reorder what works",
	},
}

var titleRules = heuristicRules{
	categories: map[string][]string{
		"water_treatment": {
			"The Complete Guide to Choosing a Water Softener",
			"Hard Water Problems? Here Is What Actually Works",
		},
		"audio": {
			"How to Pick Headphones You Will Not Regret",
			"The Only Audio Buying Guide You Need This Year",
		},
		"computing": {
			"Building the Right Setup: A Practical Hardware Guide",
			"What to Look for Before You Upgrade Your Tech",
		},
		"kitchen": {
			"Kitchen Upgrades That Earn Their Counter Space",
			"The Smart Shopper's Guide to Kitchen Appliances",
		},
		"fitness": {
			"Home Fitness Gear That Is Worth the Money",
			"How to Choose Equipment You Will Actually Use",
		},
		"home_security": {
			"Securing Your Home: A No-Nonsense Buyer's Guide",
			"What Security Cameras Can and Cannot Do for You",
		},
		"outdoor": {
			"How to Buy Outdoor Gear That Lasts",
			"Gear Up Right: An Outdoor Equipment Checklist",
		},
		"pet_care": {
			"What Your Pet Actually Needs: A Buyer's Guide",
			"Pet Supplies Worth Spending On",
		},
		"beauty": {
			"Reading the Label: A Practical Beauty Buying Guide",
			"Salon Results at Home: What to Buy First",
		},
		"baby": {
			"The New Parent's Guide to Buying Safe Baby Gear",
			"Baby Products Worth the Money (and What to Skip)",
		},
	},
	priceTiers: map[string][]string{
		"premium": {
			"Is Premium Worth It? What the Extra Money Buys",
			"When Paying More Actually Pays Off",
		},
		"mid-range": {
			"The Sweet Spot: Finding the Best Mid-Range Value",
		},
		"budget": {
			"Budget Buys That Do Not Feel Cheap",
			"How to Shop Smart Without Overspending",
		},
		"mixed": {
			"Every Budget Covered: Options at Any Price Point",
		},
	},
	problems: []string{
		"How to Solve %s for Good",
		"A Practical Guide to Dealing With %s",
	},
	generic: []string{
		"How to Research a Product Before You Buy",
		"The Honest Buying Guide for Smart Shoppers",
		"What Reviews Will Not Tell You Before You Buy",
		"A Beginner's Guide to Comparing Brands",
	},
}

var keywordRules = heuristicRules{
	categories: map[string][]string{
		"water_treatment": {
			"best water softener system",
			"water filtration buying guide",
		},
		"audio": {
			"best wireless headphones",
			"noise cancelling headphones reviews",
		},
		"computing": {
			"best laptop for the money",
			"pc hardware buying guide",
		},
		"kitchen": {
			"best kitchen appliances",
			"small kitchen appliance reviews",
		},
		"fitness": {
			"home gym equipment guide",
			"best fitness tracker",
		},
		"home_security": {
			"best home security camera",
			"diy home security guide",
		},
		"outdoor": {
			"best camping gear",
			"outdoor equipment reviews",
		},
		"pet_care": {
			"best pet supplies",
			"pet product reviews",
		},
		"beauty": {
			"best skincare products",
			"beauty product reviews",
		},
		"baby": {
			"best baby gear",
			"baby product safety guide",
		},
	},
	priceTiers: map[string][]string{
		"premium": {
			"premium brands comparison",
			"is premium worth it",
		},
		"mid-range": {
			"best mid range options",
		},
		"budget": {
			"best budget picks",
			"cheap alternatives that work",
		},
		"mixed": {
			"price comparison guide",
		},
	},
	problems: []string{
		"how to prevent %s",
		"best solution for %s",
	},
	generic: []string{
		"product reviews",
		"buying guide",
		"best products",
		"consumer guide",
		"product comparison",
		"brand reviews",
	},
}
