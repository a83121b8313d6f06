package validators

import "go.mongodb.org/mongo-driver/bson"

var TimeSlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"date",
			"time",
			"status",
			"booked",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"time": bson.M{
				"bsonType": "string",
				"pattern":  "^(0[1-9]|1[0-2]):00(AM|PM)$",
			},

			"status": bson.M{
				"enum": []string{"available", "blocked"},
			},

			"booked": bson.M{
				"bsonType": "bool",
			},
		},
	},
}
