package simulator

type MsgType string

const (
	MsgTypeControl   = MsgType("control")
	MsgTypeCarConfig = MsgType("car_config")
	MsgTypeCarLoaded = MsgType("car_loaded")
)

type Msg struct {
	MsgType MsgType `json:"msg_type"`
}

// ControlMsg is json msg used to control cars. MsgType must be filled with "control"
type ControlMsg struct {
	MsgType  MsgType `json:"msg_type"`
	Steering string  `json:"steering"`
	Throttle string  `json:"throttle"`
	Brake    string  `json:"brake"`
}

type CarStyle string

const (
	CarConfigBodyStyleDonkey = CarStyle("donkey")
	CarConfigBodyStyleBare   = CarStyle("bare")
	CarConfigBodyStyleCar01  = CarStyle("car01")
)

/*
	# body_style = "donkey" | "bare" | "car01" choice of string
	# body_rgb  = (128, 128, 128) tuple of ints
	# car_name = "string less than 64 char"
*/
type CarConfigMsg struct {
	MsgType   MsgType  `json:"msg_type"`
	BodyStyle CarStyle `json:"body_style"`
	BodyR     string   `json:"body_r"`
	BodyG     string   `json:"body_g"`
	BodyB     string   `json:"body_b"`
	CarName   string   `json:"car_name"`
	FontSize  string   `json:"font_size"`
}
