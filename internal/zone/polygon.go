package zone

import "github.com/xela07ax/floorwatch/internal/domain"

// Point - вершина контура в порядке [lng, lat], как в выгрузке плана здания.
type Point [2]float64

// BuildingBoundary - контур здания с плана третьего этажа.
var BuildingBoundary = []Point{
	{-0.9325257491440092, 51.46095209556677},
	{-0.9322260122943579, 51.4609303706827},
	{-0.9323480528003849, 51.46025271621235},
	{-0.9328194510225436, 51.4602853040184},
	{-0.9328100632912344, 51.460345466060794},
	{-0.9332976202566329, 51.46038074214056},
	{-0.9332654337484021, 51.460556631967684},
	{-0.9326062808918492, 51.46051109286201},
}

// PolygonClassifier отсекает точки за пределами контура здания,
// точки внутри отдаёт вложенному классификатору.
type PolygonClassifier struct {
	boundary []Point
	outside  string
	inner    Classifier
}

func NewPolygonClassifier(boundary []Point, outside string, inner Classifier) *PolygonClassifier {
	b := make([]Point, len(boundary))
	copy(b, boundary)
	return &PolygonClassifier{boundary: b, outside: outside, inner: inner}
}

func (c *PolygonClassifier) Classify(loc domain.Location) string {
	if len(c.boundary) < 3 || !Contains(c.boundary, loc.Lng(), loc.Lat()) {
		return c.outside
	}
	return c.inner.Classify(loc)
}

// Contains - ray casting: считаем пересечения горизонтального луча с рёбрами.
func Contains(poly []Point, x, y float64) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		xi, yi := poly[i][0], poly[i][1]
		xj, yj := poly[j][0], poly[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
