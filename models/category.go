package models

// Category 消费类别（固定的封闭集合，不再由后台维护）
type Category string

// 消费类别常量
const (
	CategoryFood          Category = "Food"
	CategoryTravel        Category = "Travel"
	CategoryShopping      Category = "Shopping"
	CategoryRent          Category = "Rent"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryUtilities     Category = "Utilities"
	CategoryOther         Category = "Other"
)

var categories = []Category{
	CategoryFood,
	CategoryTravel,
	CategoryShopping,
	CategoryRent,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryEducation,
	CategoryUtilities,
	CategoryOther,
}

// GetCategories 获取所有消费类别（返回副本，调用方可随意修改）
func GetCategories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid 判断类别是否属于固定集合
func (c Category) Valid() bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}

// String 实现 fmt.Stringer
func (c Category) String() string {
	return string(c)
}
